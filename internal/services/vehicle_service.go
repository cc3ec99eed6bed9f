package services

import (
	"context"
	"net/http"
	"net/url"

	"parkingapp/internal/sanitize"
	"parkingapp/internal/security"
	"parkingapp/internal/store"
	"parkingapp/internal/validation"
	"parkingapp/pkg/contracts/domain"
)

// VehicleService manages the user's registered vehicles
type VehicleService struct {
	base
}

// NewVehicleService creates a vehicle service
func NewVehicleService(d Deps) *VehicleService {
	return &VehicleService{base: newBase(d, "vehicle_service")}
}

func vehiclePath(id string) string {
	return "/vehicles/" + url.PathEscape(id)
}

func sanitizeVehicleInput(in domain.VehicleInput) domain.VehicleInput {
	in.LicensePlate = sanitize.LicensePlate(in.LicensePlate)
	in.State = sanitize.LicensePlate(in.State)
	in.Make = sanitize.Name(in.Make)
	in.Model = sanitize.Address(in.Model)
	in.Color = sanitize.Name(in.Color)
	in.Nickname = sanitize.UserContent(in.Nickname)
	return in
}

func vehicleForm(in domain.VehicleInput) (map[string]any, map[string]validation.Rule) {
	data := map[string]any{
		"license_plate": in.LicensePlate,
		"state":         in.State,
		"make":          in.Make,
		"model":         in.Model,
		"color":         in.Color,
		"nickname":      in.Nickname,
	}
	rules := map[string]validation.Rule{
		"license_plate": validation.StringRule(func(p string) validation.Result {
			return validation.LicensePlate(p, in.State)
		}),
		"state": validation.RequiredRule("State"),
	}
	return data, rules
}

func upsertVehicle(items []domain.Vehicle, v domain.Vehicle) []domain.Vehicle {
	out := make([]domain.Vehicle, 0, len(items)+1)
	found := false
	for _, it := range items {
		if it.ID == v.ID {
			it = v
			found = true
		}
		out = append(out, it)
	}
	if !found {
		out = append(out, v)
	}
	return out
}

// List returns the user's vehicles
func (s *VehicleService) List(ctx context.Context) Response[[]domain.Vehicle] {
	return run(ctx, s.base, "list_vehicles", vehicleSlice, func(ctx context.Context) ([]domain.Vehicle, error) {
		var out []domain.Vehicle
		err := s.Backend.Do(ctx, http.MethodGet, "/vehicles", nil, &out)
		return out, err
	}, func(_ store.VehiclesData, items []domain.Vehicle) store.VehiclesData {
		if items == nil {
			items = []domain.Vehicle{}
		}
		return store.VehiclesData{Items: items}
	}, "")
}

// Create registers a vehicle
func (s *VehicleService) Create(ctx context.Context, in domain.VehicleInput) Response[domain.Vehicle] {
	in = sanitizeVehicleInput(in)

	return run(ctx, s.base, "create_vehicle", vehicleSlice, func(ctx context.Context) (domain.Vehicle, error) {
		var v domain.Vehicle
		data, rules := vehicleForm(in)
		if err := s.guard(ctx, security.CategoryVehicleCreate, data, rules); err != nil {
			return v, err
		}
		err := s.Backend.Do(ctx, http.MethodPost, "/vehicles", in, &v)
		return v, err
	}, func(d store.VehiclesData, v domain.Vehicle) store.VehiclesData {
		return store.VehiclesData{Items: upsertVehicle(d.Items, v)}
	}, "Vehicle added")
}

// Update edits a vehicle
func (s *VehicleService) Update(ctx context.Context, id string, in domain.VehicleInput) Response[domain.Vehicle] {
	id = sanitize.UserContent(id)
	in = sanitizeVehicleInput(in)

	return run(ctx, s.base, "update_vehicle", vehicleSlice, func(ctx context.Context) (domain.Vehicle, error) {
		var v domain.Vehicle
		data, rules := vehicleForm(in)
		data["id"] = id
		rules["id"] = validation.RequiredRule("Vehicle ID")
		if err := s.guard(ctx, security.CategoryFormSubmit, data, rules); err != nil {
			return v, err
		}
		err := s.Backend.Do(ctx, http.MethodPut, vehiclePath(id), in, &v)
		return v, err
	}, func(d store.VehiclesData, v domain.Vehicle) store.VehiclesData {
		return store.VehiclesData{Items: upsertVehicle(d.Items, v)}
	}, "Vehicle updated")
}

// Delete removes a vehicle
func (s *VehicleService) Delete(ctx context.Context, id string) Response[string] {
	id = sanitize.UserContent(id)

	return run(ctx, s.base, "delete_vehicle", vehicleSlice, func(ctx context.Context) (string, error) {
		data := map[string]any{"id": id}
		err := s.guard(ctx, security.CategoryFormSubmit, data, map[string]validation.Rule{
			"id": validation.RequiredRule("Vehicle ID"),
		})
		if err != nil {
			return "", err
		}
		return id, s.Backend.Do(ctx, http.MethodDelete, vehiclePath(id), nil, nil)
	}, func(d store.VehiclesData, id string) store.VehiclesData {
		items := make([]domain.Vehicle, 0, len(d.Items))
		for _, v := range d.Items {
			if v.ID != id {
				items = append(items, v)
			}
		}
		return store.VehiclesData{Items: items}
	}, "Vehicle removed")
}
