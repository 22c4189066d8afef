package catalog

import (
	"storefront/internal/model"
	"storefront/internal/money"
)

const compareAtMarkup = 1.3

func compareAt(price int64) int64 {
	return money.Round(float64(price) * compareAtMarkup)
}

var defaultCategories = []model.Category{
	{ID: 1, Name: "Wall Art", Color: "#D4AF37", Images: []string{
		"https://images.unsplash.com/photo-1549490349-8643362247b5?q=80&w=600",
		"https://images.unsplash.com/photo-1513519245088-0e12902e5a38?q=80&w=600",
		"https://images.unsplash.com/photo-1579783902614-a3fb3927b6a5?q=80&w=600",
	}},
	{ID: 2, Name: "Textured Art", Color: "#6B4226", Images: []string{
		"https://images.unsplash.com/photo-1541701494587-cb58502866ab?q=80&w=600",
		"https://images.unsplash.com/photo-1501472312651-726afe119ff1?q=80&w=600",
		"https://images.unsplash.com/photo-1515402246390-e136f6e55cb7?q=80&w=600",
	}},
	{ID: 3, Name: "Lippan Art", Color: "#B91C1C", Images: []string{
		"https://images.unsplash.com/photo-1459908676235-d5f02a50184b?q=80&w=600",
		"https://images.unsplash.com/photo-1578301978693-85fa9c0320b9?q=80&w=600",
		"https://images.unsplash.com/photo-1550684848-86a5d8727436?q=80&w=600",
	}},
	{ID: 4, Name: "Handmade Decor", Color: "#15803D", Images: []string{
		"https://images.unsplash.com/photo-1513364238444-23007137589c?q=80&w=600",
		"https://images.unsplash.com/photo-1506806732259-39c2d4a78ca7?q=80&w=600",
		"https://images.unsplash.com/photo-1536924940846-227afb31e2a5?q=80&w=600",
	}},
}

var defaultProducts = []model.Product{
	{
		ID: 1, Name: "Golden Rhythms", Category: "Wall Art", Price: 4999, MRP: 6499, Rating: 4.8,
		Description: "A mesmerizing abstract expression of motion and light, hand-painted with premium acrylics and gold leaf accents.",
		Images: []string{
			"https://images.unsplash.com/photo-1549490349-8643362247b5?q=80&w=1200",
			"https://images.unsplash.com/photo-1513519245088-0e12902e5a38?q=80&w=600",
			"https://images.unsplash.com/photo-1579783902614-a3fb3927b6a5?q=80&w=600",
		},
	},
	{
		ID: 2, Name: "Textured Silence", Category: "Textured Art", Price: 6499, MRP: 7999, Rating: 4.9,
		Description: "Heavy impasto minimalism whose shadows and depth change with the room lighting.",
		Images: []string{
			"https://images.unsplash.com/photo-1579783902614-a3fb3927b6a5?q=80&w=1200",
			"https://images.unsplash.com/photo-1541701494587-cb58502866ab?q=80&w=600",
			"https://images.unsplash.com/photo-1550684848-86a5d8727436?q=80&w=600",
		},
	},
	{
		ID: 3, Name: "Lippan Soul", Category: "Lippan Art", Price: 3599, MRP: 4500, Rating: 4.7,
		Description: "Traditional Kutch mud-mirror work reimagined for the modern home.",
		Images: []string{
			"https://images.unsplash.com/photo-1578301978693-85fa9c0320b9?q=80&w=1200",
			"https://images.unsplash.com/photo-1459908676235-d5f02a50184b?q=80&w=600",
			"https://images.unsplash.com/photo-1618331835717-801e976710b2?q=80&w=600",
		},
	},
	{
		ID: 4, Name: "Minimalist Earth", Category: "Wall Art", Price: 5299, MRP: 6999, Rating: 4.6,
		Description: "Earth tones and organic shapes for a grounding atmosphere in a living area or office.",
		Images: []string{
			"https://images.unsplash.com/photo-1513519245088-0e12902e5a38?q=80&w=1200",
			"https://images.unsplash.com/photo-1549490349-8643362247b5?q=80&w=600",
			"https://images.unsplash.com/photo-1494438639946-1ebd1d20bf85?q=80&w=600",
		},
	},
	{
		ID: 5, Name: "Earthen Glow", Category: "Handmade Decor", Price: 4200, MRP: 5500, Rating: 4.8,
		Description: "A handcrafted piece that captures the natural glow of sunset on clay.",
		Images: []string{
			"https://images.unsplash.com/photo-1513364238444-23007137589c?q=80&w=1200",
			"https://images.unsplash.com/photo-1506806732259-39c2d4a78ca7?q=80&w=600",
			"https://images.unsplash.com/photo-1536924940846-227afb31e2a5?q=80&w=600",
		},
	},
	{
		ID: 6, Name: "Azure Reflection", Category: "Wall Art", Price: 3800, MRP: 4999, Rating: 4.7,
		Description: "Cool tones and fluid motion inspired by the calm reflections of water at dawn.",
		Images: []string{
			"https://images.unsplash.com/photo-1501472312651-726afe119ff1?q=80&w=1200",
			"https://images.unsplash.com/photo-1549490349-8643362247b5?q=80&w=600",
		},
	},
	{
		ID: 7, Name: "Clay Echoes", Category: "Lippan Art", Price: 2999, MRP: 3800, Rating: 4.6,
		Description: "Intricate patterns and mirrored accents in traditional craftsmanship.",
		Images: []string{
			"https://images.unsplash.com/photo-1618331835717-801e976710b2?q=80&w=1200",
			"https://images.unsplash.com/photo-1578301978693-85fa9c0320b9?q=80&w=600",
		},
	},
	{
		ID: 8, Name: "Desert Bloom", Category: "Textured Art", Price: 5500, MRP: 7000, Rating: 4.9,
		Description: "Floral motifs rendered in heavy texture that bloom from the canvas.",
		Images: []string{
			"https://images.unsplash.com/photo-1494438639946-1ebd1d20bf85?q=80&w=1200",
			"https://images.unsplash.com/photo-1541701494587-cb58502866ab?q=80&w=600",
		},
	},
}
