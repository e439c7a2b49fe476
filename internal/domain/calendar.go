package domain

import "fmt"

// Term is a named institutional date range (a semester or an academic year).
type Term struct {
	Name  string
	Range DateRange
}

// AcademicCalendar carries the institution's terms. Term-length permit types
// do not use the caller's range directly: the requested start date selects
// the term, and the term's fixed range becomes the permit range.
type AcademicCalendar struct {
	Semesters []Term
	Years     []Term
}

// CanonicalRange applies the permit type's range-generation rule.
func (c AcademicCalendar) CanonicalRange(typ PermitType, requested DateRange) (DateRange, error) {
	switch typ {
	case PermitDaily, PermitEvent, PermitVisitor:
		return requested, nil
	case PermitSemester:
		return termRange(c.Semesters, requested.Start, "semester")
	case PermitAcademicYear:
		return termRange(c.Years, requested.Start, "academic year")
	}
	return DateRange{}, ErrPermitTypeUnknown
}

func termRange(terms []Term, start Day, kind string) (DateRange, error) {
	for _, t := range terms {
		if t.Range.Contains(start) {
			return t.Range, nil
		}
	}
	return DateRange{}, fmt.Errorf("%w: no %s term contains %s", ErrInvalidRequest, kind, start)
}
