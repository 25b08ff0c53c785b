// Package ads holds the static ad catalog. Descriptors are configuration,
// not data fetched from the ad network at runtime.
package ads

import "math/rand"

// Ad describes one video advertisement.
type Ad struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Duration  int    `json:"duration"` // seconds
	Provider  string `json:"provider"`
	Thumbnail string `json:"thumbnail"`
	VideoURL  string `json:"video_url"`
}

// Catalog is a fixed set of ad descriptors.
type Catalog struct {
	ads []Ad
}

// NewCatalog wraps the given descriptors. Panics on an empty set because
// the session coordinator assumes Pick always succeeds.
func NewCatalog(ads []Ad) *Catalog {
	if len(ads) == 0 {
		panic("ads: catalog must not be empty")
	}
	c := &Catalog{ads: make([]Ad, len(ads))}
	copy(c.ads, ads)
	return c
}

// DefaultCatalog returns the built-in sample inventory.
func DefaultCatalog() *Catalog {
	return NewCatalog([]Ad{
		{
			ID:        "ad1",
			Title:     "Premium Smartphone - Latest Model",
			Duration:  30,
			Provider:  "AdsTerra",
			Thumbnail: "https://cdn.watchearn.example/thumbs/smartphone.jpg",
			VideoURL:  "https://cdn.watchearn.example/ads/smartphone_720p.mp4",
		},
		{
			ID:        "ad2",
			Title:     "Luxury Car - Drive Your Dreams",
			Duration:  15,
			Provider:  "AdsTerra",
			Thumbnail: "https://cdn.watchearn.example/thumbs/car.jpg",
			VideoURL:  "https://cdn.watchearn.example/ads/car_720p.mp4",
		},
		{
			ID:        "ad3",
			Title:     "Summer Vacation Deals",
			Duration:  20,
			Provider:  "AdsTerra",
			Thumbnail: "https://cdn.watchearn.example/thumbs/vacation.jpg",
			VideoURL:  "https://cdn.watchearn.example/ads/vacation_720p.mp4",
		},
		{
			ID:        "ad4",
			Title:     "Online Learning Platform",
			Duration:  25,
			Provider:  "AdsTerra",
			Thumbnail: "https://cdn.watchearn.example/thumbs/learning.jpg",
			VideoURL:  "https://cdn.watchearn.example/ads/learning_720p.mp4",
		},
		{
			ID:        "ad5",
			Title:     "Fitness App Subscription",
			Duration:  15,
			Provider:  "AdsTerra",
			Thumbnail: "https://cdn.watchearn.example/thumbs/fitness.jpg",
			VideoURL:  "https://cdn.watchearn.example/ads/fitness_720p.mp4",
		},
	})
}

// Pick selects one ad uniformly at random.
func (c *Catalog) Pick() Ad {
	return c.ads[rand.Intn(len(c.ads))]
}

// All returns a copy of every descriptor.
func (c *Catalog) All() []Ad {
	out := make([]Ad, len(c.ads))
	copy(out, c.ads)
	return out
}

// Len returns the catalog size.
func (c *Catalog) Len() int {
	return len(c.ads)
}
