package domain

import "time"

// Role determines which portal areas a user can reach.
type Role string

const (
	RolePatient  Role = "patient"
	RoleAdmin    Role = "admin"
	RoleProvider Role = "provider"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleAdmin, RoleProvider:
		return true
	}
	return false
}

// RecordSource tells where a resolved UserRecord came from.
type RecordSource string

const (
	SourceProfile RecordSource = "profile"
	SourceDemo    RecordSource = "demo"
)

// Address is the postal address kept on a profile.
type Address struct {
	Street  string `json:"street" bson:"street"`
	City    string `json:"city" bson:"city"`
	State   string `json:"state" bson:"state"`
	ZipCode string `json:"zipCode" bson:"zip_code"`
}

// Insurance holds the member's coverage details.
type Insurance struct {
	Provider    string `json:"provider" bson:"provider"`
	MemberID    string `json:"memberId" bson:"member_id"`
	GroupNumber string `json:"groupNumber" bson:"group_number"`
}

// UserRecord is the resolved identity exposed to the rest of the application.
// Its JSON form is what the local session cache stores.
type UserRecord struct {
	ID          string       `json:"id"`
	Email       string       `json:"email"`
	FirstName   string       `json:"firstName"`
	LastName    string       `json:"lastName"`
	Role        Role         `json:"role"`
	IsActive    bool         `json:"isActive"`
	PhoneNumber string       `json:"phoneNumber,omitempty"`
	DateOfBirth string       `json:"dateOfBirth,omitempty"`
	Address     *Address     `json:"address,omitempty"`
	Insurance   *Insurance   `json:"insurance,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	LastLogin   *time.Time   `json:"lastLogin,omitempty"`
	Source      RecordSource `json:"source,omitempty"`
}

// Clone returns a deep copy so callers can never mutate shared state.
func (u *UserRecord) Clone() *UserRecord {
	if u == nil {
		return nil
	}
	c := *u
	if u.Address != nil {
		a := *u.Address
		c.Address = &a
	}
	if u.Insurance != nil {
		i := *u.Insurance
		c.Insurance = &i
	}
	if u.LastLogin != nil {
		t := *u.LastLogin
		c.LastLogin = &t
	}
	return &c
}

// Authenticated reports whether the record may be treated as a logged-in user.
// Inactive records and records without a valid role never are.
func (u *UserRecord) Authenticated() bool {
	return u != nil && u.IsActive && u.Role.Valid()
}

// HasRole reports whether an authenticated user holds role.
func (u *UserRecord) HasRole(role Role) bool {
	return u.Authenticated() && u.Role == role
}

// CanAccessAdmin gates the admin portal: admins and providers.
func (u *UserRecord) CanAccessAdmin() bool {
	return u.HasRole(RoleAdmin) || u.HasRole(RoleProvider)
}

// CanAccessPatient gates the patient portal.
func (u *UserRecord) CanAccessPatient() bool {
	return u.HasRole(RolePatient)
}

// ProfileFields is the client-writable subset of a profile. Nil fields are
// left untouched.
type ProfileFields struct {
	FirstName   *string    `json:"first_name,omitempty"`
	LastName    *string    `json:"last_name,omitempty"`
	PhoneNumber *string    `json:"phone_number,omitempty"`
	DateOfBirth *string    `json:"date_of_birth,omitempty"`
	Address     *Address   `json:"address,omitempty"`
	Insurance   *Insurance `json:"insurance,omitempty"`
}

// Empty reports whether no field is set.
func (f ProfileFields) Empty() bool {
	return f.FirstName == nil && f.LastName == nil && f.PhoneNumber == nil &&
		f.DateOfBirth == nil && f.Address == nil && f.Insurance == nil
}

// ApplyTo shallow-merges the set fields into u.
func (f ProfileFields) ApplyTo(u *UserRecord) {
	if f.FirstName != nil {
		u.FirstName = *f.FirstName
	}
	if f.LastName != nil {
		u.LastName = *f.LastName
	}
	if f.PhoneNumber != nil {
		u.PhoneNumber = *f.PhoneNumber
	}
	if f.DateOfBirth != nil {
		u.DateOfBirth = *f.DateOfBirth
	}
	if f.Address != nil {
		a := *f.Address
		u.Address = &a
	}
	if f.Insurance != nil {
		i := *f.Insurance
		u.Insurance = &i
	}
}

// ProfileUpdate is what callers hand to the session resolver. ID, Email and
// Role are accepted so a full record can be passed back, but they are never
// applied: only ProfileFields survive.
type ProfileUpdate struct {
	ProfileFields

	ID    *string
	Email *string
	Role  *Role
}

// NewUser carries the data needed to register an account.
type NewUser struct {
	Email       string
	Password    string
	FirstName   string
	LastName    string
	Role        Role
	PhoneNumber string
	DateOfBirth string
	Address     *Address
	Insurance   *Insurance
}
