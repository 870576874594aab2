package model

import "time"

type VehicleInfo struct {
	Make  string `json:"make"`
	Model string `json:"model"`
	Year  int    `json:"year"`
	Color string `json:"color"`
}

type OwnerInfo struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	NIN      string `json:"nin"`
	Address  string `json:"address"`
	State    string `json:"state"`
	LGA      string `json:"lga"`
}

type VehicleDetails struct {
	EngineNumber  string `json:"engineNumber,omitempty"`
	ChassisNumber string `json:"chassisNumber,omitempty"`
	PlateNumber   string `json:"plateNumber,omitempty"`
	Usage         string `json:"usage,omitempty"` // private | commercial
	Mileage       int    `json:"mileage,omitempty"`
	Condition     string `json:"condition,omitempty"` // valuation only
}

type AdditionalInfo struct {
	CertificateNumber string `json:"certificateNumber"`
	PreviousState     string `json:"previousState"`
	Notes             string `json:"notes,omitempty"`
}

// DocumentUpload is a file received from the citizen, not yet sent to the backend.
type DocumentUpload struct {
	Kind        DocumentKind
	FileName    string
	ContentType string
	Data        []byte
}

// UploadedDocument is the backend's record of an accepted upload.
type UploadedDocument struct {
	ID       string       `json:"id"`
	Kind     DocumentKind `json:"kind"`
	FileName string       `json:"fileName"`
	URL      string       `json:"url,omitempty"`
}

type Valuation struct {
	Low      int64  `json:"low"`
	High     int64  `json:"high"`
	Estimate int64  `json:"estimate"`
	Currency string `json:"currency"`
}

// VINVerification is what the backend returns for a known VIN.
type VINVerification struct {
	RequestID  string      `json:"requestId"`
	Vehicle    VehicleInfo `json:"vehicleInfo"`
	OwnerPhone string      `json:"ownerPhone,omitempty"` // masked, transfer only
}

// WizardState accumulates the fields collected by one run of a flow.
// Step is the furthest step the citizen may open. Fields are only dropped
// when a new VIN opens a different backend request.
type WizardState struct {
	ID   string   `json:"id"`
	Flow FlowKind `json:"flow"`
	Step StepID   `json:"step"`

	RequestID      string             `json:"requestId,omitempty"`
	VIN            string             `json:"vin,omitempty"`
	Vehicle        *VehicleInfo       `json:"vehicleInfo,omitempty"`
	OwnerPhone     string             `json:"ownerPhone,omitempty"`
	Owner          *OwnerInfo         `json:"ownerInfo,omitempty"`
	VehicleDetails *VehicleDetails    `json:"vehicleDetails,omitempty"`
	Documents      []UploadedDocument `json:"uploadedDocuments,omitempty"`
	Additional     *AdditionalInfo    `json:"additionalInfo,omitempty"`
	OTPVerified    bool               `json:"otpVerified,omitempty"`
	NextOwner      *OwnerInfo         `json:"nextOwnerInfo,omitempty"`
	Amount         int64              `json:"amount,omitempty"`
	Valuation      *Valuation         `json:"valuation,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func NewWizardState(id string, flow Flow, now time.Time) *WizardState {
	return &WizardState{
		ID:        id,
		Flow:      flow.Kind,
		Step:      flow.Entry(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// PayerEmail is the address the gateway receipt goes to. For a transfer the
// incoming owner pays.
func (s *WizardState) PayerEmail() string {
	if s.Flow == FlowTransfer && s.NextOwner != nil {
		return s.NextOwner.Email
	}
	if s.Owner != nil {
		return s.Owner.Email
	}
	return ""
}

// Document returns the uploaded document of the given kind, if any.
func (s *WizardState) Document(kind DocumentKind) (UploadedDocument, bool) {
	for _, d := range s.Documents {
		if d.Kind == kind {
			return d, true
		}
	}
	return UploadedDocument{}, false
}

func (s *WizardState) clone() *WizardState {
	cp := *s
	if s.Vehicle != nil {
		v := *s.Vehicle
		cp.Vehicle = &v
	}
	if s.Owner != nil {
		o := *s.Owner
		cp.Owner = &o
	}
	if s.VehicleDetails != nil {
		d := *s.VehicleDetails
		cp.VehicleDetails = &d
	}
	if s.Additional != nil {
		a := *s.Additional
		cp.Additional = &a
	}
	if s.NextOwner != nil {
		n := *s.NextOwner
		cp.NextOwner = &n
	}
	if s.Valuation != nil {
		v := *s.Valuation
		cp.Valuation = &v
	}
	cp.Documents = append([]UploadedDocument(nil), s.Documents...)
	return &cp
}
