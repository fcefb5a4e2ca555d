package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/philview/philview/internal/models"
)

// DemoProperties is the demo catalog loaded by Seed.
func DemoProperties() []models.Property {
	return []models.Property{
		{
			ID:          "1",
			Name:        "Skyline Residences",
			Location:    "Makati City",
			Coordinates: models.Coordinates{Lat: 14.5551, Lng: 121.0169},
			Price:       8500000,
			Type:        "Condominium",
			Status:      models.PropertyStatusAvailable,
			Description: "Luxury high-rise living with stunning city views",
			Features:    []string{"2 Bedrooms", "2 Bathrooms", "Parking", "Gym", "Swimming Pool"},
		},
		{
			ID:          "2",
			Name:        "Garden Villas",
			Location:    "Quezon City",
			Coordinates: models.Coordinates{Lat: 14.6599, Lng: 121.0245},
			Price:       12000000,
			Type:        "Townhouse",
			Status:      models.PropertyStatusAvailable,
			Description: "Spacious family homes with private gardens",
			Features:    []string{"3 Bedrooms", "3 Bathrooms", "Garden", "Garage", "Security"},
		},
		{
			ID:          "3",
			Name:        "Metro Heights",
			Location:    "Pasig City",
			Coordinates: models.Coordinates{Lat: 14.5643, Lng: 121.0151},
			Price:       6800000,
			Type:        "Condominium",
			Status:      models.PropertyStatusReserved,
			Description: "Modern urban living near business districts",
			Features:    []string{"1 Bedroom", "1 Bathroom", "Balcony", "Amenities", "Transport Hub"},
		},
	}
}

// Seed saves the demo catalog into d. Existing records with the same ids are replaced.
func Seed(ctx context.Context, d Directory) error {
	for _, p := range DemoProperties() {
		if err := d.SaveProperty(ctx, p); err != nil {
			return fmt.Errorf("failed to seed property %s: %w", p.ID, err)
		}
	}
	slog.Info("store.Seed: demo catalog loaded", "count", len(DemoProperties()))
	return nil
}
