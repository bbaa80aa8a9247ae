package schedule

import "time"

// ProtocolEntry is one dose of the compiled immunization protocol: vaccine,
// dose number within that vaccine's series, and the offset in calendar days
// from the date of birth. Changing the protocol is a deployment event.
type ProtocolEntry struct {
	VaccineID  int
	DoseNumber int
	OffsetDays int
}

// VaccineNames maps vaccine ids to display names used in reminders and list
// views.
var VaccineNames = map[int]string{
	1: "BCG",
	2: "Pentavalent",
	3: "OPV",
	4: "Measles",
}

// Protocol is the birth-dose schedule in declaration order. Generated dose
// lists preserve this order for equal dates.
var Protocol = []ProtocolEntry{
	{VaccineID: 1, DoseNumber: 1, OffsetDays: 0},
	{VaccineID: 3, DoseNumber: 1, OffsetDays: 0},
	{VaccineID: 2, DoseNumber: 1, OffsetDays: 42},
	{VaccineID: 3, DoseNumber: 2, OffsetDays: 42},
	{VaccineID: 2, DoseNumber: 2, OffsetDays: 70},
	{VaccineID: 3, DoseNumber: 3, OffsetDays: 70},
	{VaccineID: 2, DoseNumber: 3, OffsetDays: 98},
	{VaccineID: 3, DoseNumber: 4, OffsetDays: 98},
	{VaccineID: 4, DoseNumber: 1, OffsetDays: 270},
}

// GeneratedDose is one entry of a child's computed dose timeline.
type GeneratedDose struct {
	VaccineID     int
	DoseNumber    int
	ScheduledDate time.Time
}

// Generate computes the dose timeline for a date of birth. It is pure and
// deterministic: the same DOB always yields the same dates in protocol order.
// Offsets are calendar days, so month and year boundaries, leap years, and
// DST transitions never shift a date by partial days.
func Generate(dob time.Time) []GeneratedDose {
	base := time.Date(dob.Year(), dob.Month(), dob.Day(), 0, 0, 0, 0, time.UTC)

	doses := make([]GeneratedDose, 0, len(Protocol))
	for _, entry := range Protocol {
		doses = append(doses, GeneratedDose{
			VaccineID:     entry.VaccineID,
			DoseNumber:    entry.DoseNumber,
			ScheduledDate: base.AddDate(0, 0, entry.OffsetDays),
		})
	}
	return doses
}

// VaccineName resolves a vaccine id to its display name. Unknown ids come
// back as "Vaccine" so a stale row never breaks a reminder.
func VaccineName(id int) string {
	if name, ok := VaccineNames[id]; ok {
		return name
	}
	return "Vaccine"
}
