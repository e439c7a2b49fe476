package domain

// Role is supplied by the identity collaborator; the engine never derives it.
type Role string

const (
	RoleStudent Role = "student"
	RoleFaculty Role = "faculty"
	RoleStaff   Role = "staff"
	RoleVisitor Role = "visitor"
)

// ParseRole validates a role string.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleStudent, RoleFaculty, RoleStaff, RoleVisitor:
		return Role(s), nil
	}
	return "", ErrInvalidRequest
}

// PermitType classifies a permit by duration rule and eligibility.
type PermitType string

const (
	PermitDaily        PermitType = "daily"
	PermitSemester     PermitType = "semester"
	PermitAcademicYear PermitType = "academic_year"
	PermitEvent        PermitType = "event"
	PermitVisitor      PermitType = "visitor"
)

// ParsePermitType validates a permit type string.
func ParsePermitType(s string) (PermitType, error) {
	switch PermitType(s) {
	case PermitDaily, PermitSemester, PermitAcademicYear, PermitEvent, PermitVisitor:
		return PermitType(s), nil
	}
	return "", ErrPermitTypeUnknown
}

// Eligible is the permit type's role predicate. Term-length permits are for
// the enrolled population; visitor permits are for visitors only.
func (p PermitType) Eligible(role Role) bool {
	switch p {
	case PermitSemester, PermitAcademicYear:
		return role == RoleStudent || role == RoleFaculty || role == RoleStaff
	case PermitVisitor:
		return role == RoleVisitor
	case PermitDaily, PermitEvent:
		return true
	}
	return false
}

// AddOn is an optional charge attached to a permit. Exactly one of FlatCents
// or Percent is non-zero.
type AddOn struct {
	Code      string
	FlatCents int64
	Percent   int // whole percent of the base charge
}
