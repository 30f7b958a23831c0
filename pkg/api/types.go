package api

// Provider is a therapist offering appointment slots.
type Provider struct {
	ID        int64  `json:"id"`
	Name      string `json:"nombre"`
	Specialty string `json:"especialidad_principal"`
}

// User is the authenticated account as returned on login.
type User struct {
	ID   int64  `json:"id"`
	Name string `json:"nombre"`
	Role string `json:"rol"`
}

// LoginResponse is the body of a successful login.
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"usuario"`
}

// Appointment is one entry of the patient's appointment list.
type Appointment struct {
	ID           int64  `json:"id"`
	DateTime     string `json:"fecha_hora"`
	Type         string `json:"tipo"`
	Duration     int    `json:"duracion"`
	ProviderName string `json:"terapeuta"`
	Status       string `json:"estado"`
}

// BookingResponse is the success envelope of an appointment creation.
type BookingResponse struct {
	ID      int64  `json:"id"`
	Message string `json:"mensaje"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// errorEnvelope covers the message keys the backend uses on failures.
type errorEnvelope struct {
	Message string `json:"message"`
	Mensaje string `json:"mensaje"`
	Error   string `json:"error"`
	Detail  string `json:"detail"`
}

func (e errorEnvelope) text() string {
	for _, s := range []string{e.Message, e.Mensaje, e.Error, e.Detail} {
		if s != "" {
			return s
		}
	}
	return ""
}
