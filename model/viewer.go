package model

// Viewer is the caller of an operation: an authenticated user with a loaded
// profile, or nobody.
type Viewer struct {
	UserID  int64
	Profile *Profile
}

func Anonymous() Viewer { return Viewer{} }

func NewViewer(p *Profile) Viewer {
	if p == nil {
		return Anonymous()
	}
	return Viewer{UserID: p.UserID, Profile: p}
}

func (v Viewer) Authenticated() bool { return v.Profile != nil }

func (v Viewer) Role() Role {
	if v.Profile == nil {
		return ""
	}
	return v.Profile.Role
}
