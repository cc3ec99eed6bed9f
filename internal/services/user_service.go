package services

import (
	"context"
	"net/http"

	"parkingapp/internal/sanitize"
	"parkingapp/internal/security"
	"parkingapp/internal/store"
	"parkingapp/internal/validation"
	"parkingapp/pkg/contracts/domain"
)

// UserService manages the signed-in user's profile and documents
type UserService struct {
	base
}

// NewUserService creates a user service
func NewUserService(d Deps) *UserService {
	return &UserService{base: newBase(d, "user_service")}
}

func withProfileUser(d store.ProfileData, u domain.User) store.ProfileData {
	d.User = &u
	return d
}

// Profile loads the current user's profile
func (s *UserService) Profile(ctx context.Context) Response[domain.User] {
	return run(ctx, s.base, "get_profile", profileSlice, func(ctx context.Context) (domain.User, error) {
		var u domain.User
		err := s.Backend.Do(ctx, http.MethodGet, "/users/me", nil, &u)
		return u, err
	}, withProfileUser, "")
}

// UpdateProfile edits the current user's name, phone and address
func (s *UserService) UpdateProfile(ctx context.Context, in domain.ProfileUpdate) Response[domain.User] {
	in.FirstName = sanitize.Name(in.FirstName)
	in.LastName = sanitize.Name(in.LastName)
	in.Phone = sanitize.Phone(in.Phone)
	in.Address = sanitize.Address(in.Address)

	return run(ctx, s.base, "update_profile", profileSlice, func(ctx context.Context) (domain.User, error) {
		var u domain.User
		data := map[string]any{
			"first_name": in.FirstName,
			"last_name":  in.LastName,
			"phone":      in.Phone,
			"address":    in.Address,
		}
		err := s.guard(ctx, security.CategoryProfileUpdate, data, map[string]validation.Rule{
			"first_name": validation.RequiredRule("First name"),
			"last_name":  validation.RequiredRule("Last name"),
			"phone":      phoneRule(false),
		})
		if err != nil {
			return u, err
		}
		err = s.Backend.Do(ctx, http.MethodPut, "/users/me", in, &u)
		return u, err
	}, withProfileUser, "Profile updated")
}

// UploadDocument attaches a supporting document to the profile
func (s *UserService) UploadDocument(ctx context.Context, fileName string, content []byte) Response[domain.Document] {
	fileName = sanitize.FileName(fileName)

	return run(ctx, s.base, "upload_document", profileSlice, func(ctx context.Context) (domain.Document, error) {
		var doc domain.Document
		data := map[string]any{"file_name": fileName, "size_bytes": len(content)}
		err := s.guard(ctx, security.CategoryFileUpload, data, map[string]validation.Rule{
			"file_name": func(ctx context.Context, _ any) (validation.Result, error) {
				return s.Files.ValidateDocument(ctx, fileName, content), nil
			},
		})
		if err != nil {
			return doc, err
		}
		err = s.Backend.Upload(ctx, "/users/me/documents", "file", fileName, content, &doc)
		return doc, err
	}, func(d store.ProfileData, doc domain.Document) store.ProfileData {
		d.Documents = append(append([]domain.Document{}, d.Documents...), doc)
		return d
	}, "Document uploaded")
}
