package main

import (
	"pakolx/market/internal/models"
	"pakolx/market/internal/utils"
)

type taxon struct {
	name string
	icon string
	subs []string
}

var taxonomy = []taxon{
	{"Mobiles", "mobile", []string{"Mobile Phones", "Tablets", "Accessories", "Smart Watches"}},
	{"Vehicles", "car", []string{"Cars", "Cars on Installments", "Car Accessories", "Spare Parts", "Buses, Vans & Trucks", "Rickshaw & Chingchi", "Tractors & Trailers", "Boats"}},
	{"Property for Sale", "home", []string{"Land & Plots", "Houses", "Apartments & Flats", "Shops - Offices - Commercial Space", "Portions & Floors"}},
	{"Property for Rent", "key", []string{"Houses", "Apartments & Flats", "Portions & Floors", "Shops - Offices - Commercial Space", "Rooms", "Roommates & Paying Guests", "Vacation Rentals - Guest Houses", "Land & Plots"}},
	{"Electronics & Home Appliances", "tv", []string{"Computers & Accessories", "TV - Video - Audio", "Cameras & Accessories", "Games & Entertainment", "Other Home Appliances", "Generators, UPS & Power Solutions", "Kitchen Appliances", "AC & Coolers", "Fridges & Freezers", "Washing Machines & Dryers"}},
	{"Bikes", "bike", []string{"Motorcycles", "Spare Parts", "Bicycles", "ATV & Quads", "Scooters"}},
	{"Business, Industrial & Agriculture", "briefcase", []string{"Business for Sale", "Food & Restaurants", "Trade & Industrial", "Construction & Heavy Machinery", "Agriculture", "Other Business & Industry", "Medical & Pharma"}},
	{"Services", "wrench", []string{"Education & Classes", "Travel & Visa", "Car Rental", "Drivers & Taxi", "Web Development", "Other Services", "Electronics & Computer Repair", "Event Services", "Health & Beauty", "Maids & Domestic Help", "Movers & Packers", "Home & Office Repair", "Catering & Restaurant", "Farm & Fresh Food"}},
	{"Jobs", "id-card", []string{"Online", "Marketing", "Advertising & PR", "Education", "Customer Service", "Sales", "IT & Networking", "Hotels & Tourism", "Clerical & Administration", "Human Resources", "Accounting & Finance", "Manufacturing", "Medical", "Domestic Staff", "Part Time", "Other Jobs"}},
	{"Animals", "paw", []string{"Fish & Aquariums", "Birds", "Hens & Aseel", "Cats", "Dogs", "Livestock", "Horses", "Pet Food & Accessories", "Other Animals"}},
	{"Furniture & Home Decor", "sofa", []string{"Sofa & Chairs", "Beds & Wardrobes", "Home Decoration", "Tables & Dining", "Garden & Outdoor", "Painting & Mirrors", "Rugs & Carpets", "Curtains & Blinds", "Office Furniture", "Other Household Items"}},
	{"Fashion & Beauty", "shirt", []string{"Accessories", "Clothes", "Footwear", "Jewellery", "Make Up", "Skin & Hair", "Watches", "Wedding", "Lawn & Pret", "Couture", "Other Fashion"}},
	{"Books, Sports & Hobbies", "book", []string{"Books & Magazines", "Musical Instruments", "Sports Equipment", "Gym & Fitness", "Other Hobbies"}},
	{"Kids", "baby", []string{"Kids Furniture", "Toys", "Prams & Walkers", "Swings & Slides", "Kids Bikes", "Kids Accessories"}},
}

// buildTaxonomy expands the table into category documents. Slugs derive from
// names so a rerun maps onto the same documents.
func buildTaxonomy() []models.Category {
	categories := make([]models.Category, 0, len(taxonomy))
	for i, t := range taxonomy {
		category := models.Category{
			Name:          t.name,
			Slug:          utils.Slugify(t.name),
			Icon:          t.icon,
			Order:         i + 1,
			SubCategories: make([]models.SubCategory, 0, len(t.subs)),
		}
		for _, sub := range t.subs {
			category.SubCategories = append(category.SubCategories, models.SubCategory{
				Name: sub,
				Slug: utils.Slugify(sub),
			})
		}
		categories = append(categories, category)
	}
	return categories
}
