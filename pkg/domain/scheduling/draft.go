package scheduling

import (
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/napryag/tg_physio_bot/pkg/utils/errs"
)

// AppointmentType is a clinical appointment category.
type AppointmentType string

const (
	TypeEvaluation     AppointmentType = "evaluacion"
	TypeTreatment      AppointmentType = "tratamiento"
	TypeFollowUp       AppointmentType = "seguimiento"
	TypeRehabilitation AppointmentType = "rehabilitacion"
	TypeManualTherapy  AppointmentType = "terapia_manual"
	TypeElectrotherapy AppointmentType = "electroterapia"
)

// AppointmentTypes lists the categories in display order.
var AppointmentTypes = []AppointmentType{
	TypeEvaluation, TypeTreatment, TypeFollowUp,
	TypeRehabilitation, TypeManualTherapy, TypeElectrotherapy,
}

// Title is the label shown to patients.
func (t AppointmentType) Title() string {
	switch t {
	case TypeEvaluation:
		return "Evaluación"
	case TypeTreatment:
		return "Tratamiento"
	case TypeFollowUp:
		return "Seguimiento"
	case TypeRehabilitation:
		return "Rehabilitación"
	case TypeManualTherapy:
		return "Terapia manual"
	case TypeElectrotherapy:
		return "Electroterapia"
	}
	return string(t)
}

// Durations are the session lengths in minutes a patient may book.
var Durations = []int{30, 45, 60, 90}

// DefaultDuration is preselected when the wizard opens.
const DefaultDuration = 60

// Draft accumulates the wizard's form fields as entered.
type Draft struct {
	ProviderID             string
	ProviderName           string
	Type                   AppointmentType
	Duration               string
	DateTime               string
	Motive                 string
	PainScale              string
	InjuryDescription      string
	PathologicalHistory    string
	NonPathologicalHistory string
	Notes                  string
}

// Field names a free text field of the clinical step.
type Field string

const (
	FieldMotive                 Field = "motivo"
	FieldInjuryDescription      Field = "lesion"
	FieldPathologicalHistory    Field = "patologicos"
	FieldNonPathologicalHistory Field = "no_patologicos"
	FieldNotes                  Field = "notas"
)

// ClinicalFields lists the free text fields in display order.
var ClinicalFields = []Field{
	FieldMotive, FieldInjuryDescription, FieldPathologicalHistory,
	FieldNonPathologicalHistory, FieldNotes,
}

// Title is the label of the field.
func (f Field) Title() string {
	switch f {
	case FieldMotive:
		return "Motivo de la consulta"
	case FieldInjuryDescription:
		return "Descripción de la lesión"
	case FieldPathologicalHistory:
		return "Antecedentes patológicos"
	case FieldNonPathologicalHistory:
		return "Antecedentes no patológicos"
	case FieldNotes:
		return "Notas"
	}
	return string(f)
}

// Get returns the current value of f.
func (d *Draft) Get(f Field) string {
	switch f {
	case FieldMotive:
		return d.Motive
	case FieldInjuryDescription:
		return d.InjuryDescription
	case FieldPathologicalHistory:
		return d.PathologicalHistory
	case FieldNonPathologicalHistory:
		return d.NonPathologicalHistory
	case FieldNotes:
		return d.Notes
	}
	return ""
}

func (d *Draft) set(f Field, v string) bool {
	switch f {
	case FieldMotive:
		d.Motive = v
	case FieldInjuryDescription:
		d.InjuryDescription = v
	case FieldPathologicalHistory:
		d.PathologicalHistory = v
	case FieldNonPathologicalHistory:
		d.NonPathologicalHistory = v
	case FieldNotes:
		d.Notes = v
	default:
		return false
	}
	return true
}

// BookingRequest is the payload of the appointment creation endpoint.
type BookingRequest struct {
	ProviderID             int64  `json:"terapeuta_id" validate:"gt=0"`
	Type                   string `json:"tipo" validate:"required"`
	Duration               int    `json:"duracion" validate:"oneof=30 45 60 90"`
	DateTime               string `json:"fecha_hora" validate:"required"`
	Motive                 string `json:"motivo" validate:"required"`
	PainScale              *int   `json:"escala_dolor" validate:"omitempty,min=0,max=10"`
	InjuryDescription      string `json:"descripcion_lesion"`
	PathologicalHistory    string `json:"antecedentes_patologicos"`
	NonPathologicalHistory string `json:"antecedentes_no_patologicos"`
	Notes                  string `json:"notas"`
}

var validate = validator.New()

// BuildRequest converts a draft to the wire payload. Provider id, duration
// and pain scale are coerced to numbers; other fields pass through verbatim.
func BuildRequest(d Draft) (BookingRequest, error) {
	providerID, err := strconv.ParseInt(strings.TrimSpace(d.ProviderID), 10, 64)
	if err != nil {
		return BookingRequest{}, errs.Input("Terapeuta no válido").Wrap(err)
	}
	duration, err := strconv.Atoi(strings.TrimSpace(d.Duration))
	if err != nil {
		return BookingRequest{}, errs.Input("Duración no válida").Wrap(err)
	}

	var pain *int
	if p := strings.TrimSpace(d.PainScale); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return BookingRequest{}, errs.Input("Escala de dolor no válida").Wrap(err)
		}
		pain = &n
	}

	req := BookingRequest{
		ProviderID:             providerID,
		Type:                   string(d.Type),
		Duration:               duration,
		DateTime:               d.DateTime,
		Motive:                 d.Motive,
		PainScale:              pain,
		InjuryDescription:      d.InjuryDescription,
		PathologicalHistory:    d.PathologicalHistory,
		NonPathologicalHistory: d.NonPathologicalHistory,
		Notes:                  d.Notes,
	}
	if err := validate.Struct(req); err != nil {
		return BookingRequest{}, errs.Input("Revise los datos de la cita").Wrap(err)
	}
	return req, nil
}
