package service

import "github.com/iliyamo/blog-api/internal/model"

// Authorize decides whether id may modify a resource written by authorID.
// Admins may modify anything; standard users only what they authored.
func Authorize(id model.Identity, authorID string) error {
	switch id.Role {
	case model.RoleAdmin:
		return nil
	case model.RoleStandard:
		if id.ID != "" && id.ID == authorID {
			return nil
		}
		return ErrForbidden
	default:
		return ErrForbidden
	}
}

// RequireAdmin fails with ErrForbidden unless id holds the admin role.
func RequireAdmin(id model.Identity) error {
	switch id.Role {
	case model.RoleAdmin:
		return nil
	case model.RoleStandard:
		return ErrForbidden
	default:
		return ErrForbidden
	}
}

// canView reports whether viewer may read p. Drafts are only visible to
// their author and to admins.
func canView(viewer *model.Identity, p *model.Post) bool {
	if p.Status == model.PostPublished {
		return true
	}
	return viewer != nil && Authorize(*viewer, p.AuthorID) == nil
}
