package booking

import "net/url"

// Display placeholders for launch parameters the QR code did not carry.
const (
	defaultDoctorName = "Doctor"
	defaultClinicName = "Clinic"
)

// LaunchContext identifies the doctor and workplace a QR code points at,
// plus optional display-only fields. It is read once from the launch
// query string and never changes for the life of the session.
type LaunchContext struct {
	DoctorID       string `json:"doctor_id"`
	WorkplaceID    string `json:"workplace_id"`
	DoctorName     string `json:"doctor_name"`
	Specialization string `json:"specialization"`
	ClinicName     string `json:"clinic_name"`
	Address        string `json:"address"`
	City           string `json:"city"`
}

// LaunchContextFromQuery builds a LaunchContext from the query parameters
// encoded in the clinic's QR link.
func LaunchContextFromQuery(q url.Values) LaunchContext {
	lc := LaunchContext{
		DoctorID:       q.Get("doctorId"),
		WorkplaceID:    q.Get("workplaceId"),
		DoctorName:     q.Get("doctorName"),
		Specialization: q.Get("specialization"),
		ClinicName:     q.Get("clinicName"),
		Address:        q.Get("clinicAddress"),
		City:           q.Get("city"),
	}
	if lc.DoctorName == "" {
		lc.DoctorName = defaultDoctorName
	}
	if lc.ClinicName == "" {
		lc.ClinicName = defaultClinicName
	}
	return lc
}

// Valid reports whether the context carries both required identifiers.
func (lc LaunchContext) Valid() bool {
	return lc.DoctorID != "" && lc.WorkplaceID != ""
}
