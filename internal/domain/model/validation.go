package model

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

const (
	MsgVINLength     = "VIN must be exactly 17 characters"
	MsgOTPLength     = "OTP must be exactly 6 digits"
	MsgNINLength     = "NIN must be exactly 11 digits"
	MsgEmailFormat   = "Please enter a valid email address"
	MsgPhoneFormat   = "Please enter a valid phone number"
	MsgMileageFormat = "Mileage must be a whole number"

	// MaxDocumentSize is the largest upload accepted per file.
	MaxDocumentSize = 5 << 20
)

var (
	otpPattern   = regexp.MustCompile(`^\d{6}$`)
	ninPattern   = regexp.MustCompile(`^\d{11}$`)
	phonePattern = regexp.MustCompile(`^(\+234|234|0)[789][01]\d{8}$`)

	allowedDocumentTypes = map[string]bool{
		"application/pdf": true,
		"image/jpeg":      true,
		"image/png":       true,
	}
)

// ValidationErrors maps a form field name to the message shown next to it.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, v[k]))
	}
	return strings.Join(parts, "; ")
}

// AsValidationErrors extracts field errors from err, if it carries any.
func AsValidationErrors(err error) (ValidationErrors, bool) {
	var ve ValidationErrors
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// fromOzzo flattens ozzo-validation's error map into ValidationErrors.
func fromOzzo(err error) error {
	if err == nil {
		return nil
	}
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return err
	}
	out := ValidationErrors{}
	for field, e := range errs {
		out[field] = e.Error()
	}
	return out
}

func required(label string) validation.Rule {
	return validation.Required.Error(label + " is required")
}

// StepInput is what a citizen typed into one step's form.
type StepInput interface {
	Step() StepID
	Validate() error
}

type VINInput struct {
	VIN string `json:"vin"`
}

func (VINInput) Step() StepID { return StepEnterVIN }

func (in VINInput) Normalized() string {
	return strings.ToUpper(strings.TrimSpace(in.VIN))
}

func (in VINInput) Validate() error {
	vin := in.Normalized()
	return fromOzzo(validation.Errors{
		"vin": validation.Validate(vin,
			required("VIN"),
			validation.RuneLength(17, 17).Error(MsgVINLength),
			is.Alphanumeric.Error("VIN may only contain letters and digits"),
		),
	}.Filter())
}

type OwnerInput struct {
	Owner OwnerInfo
	Next  bool // incoming owner of a transfer
}

func (in OwnerInput) Step() StepID {
	if in.Next {
		return StepNextOwnerInformation
	}
	return StepOwnerInformation
}

func (in OwnerInput) Validate() error {
	o := in.Owner
	return fromOzzo(validation.ValidateStruct(&o,
		validation.Field(&o.FullName, required("Full name"), validation.RuneLength(2, 120)),
		validation.Field(&o.Email, required("Email"), is.EmailFormat.Error(MsgEmailFormat)),
		validation.Field(&o.Phone, required("Phone number"), validation.Match(phonePattern).Error(MsgPhoneFormat)),
		validation.Field(&o.NIN, required("NIN"), validation.Match(ninPattern).Error(MsgNINLength)),
		validation.Field(&o.Address, required("Address")),
		validation.Field(&o.State, required("State")),
		validation.Field(&o.LGA, required("LGA")),
	))
}

type VehicleDetailsInput struct {
	Details VehicleDetails
}

func (VehicleDetailsInput) Step() StepID { return StepVehicleDetails }

func (in VehicleDetailsInput) Validate() error {
	d := in.Details
	return fromOzzo(validation.ValidateStruct(&d,
		validation.Field(&d.EngineNumber, required("Engine number")),
		validation.Field(&d.ChassisNumber, required("Chassis number")),
		validation.Field(&d.Usage, required("Vehicle usage"), validation.In("private", "commercial").Error("Select private or commercial")),
		validation.Field(&d.Mileage, validation.Min(0).Error("Mileage cannot be negative")),
	))
}

// ValuationInput is the vehicle-details step of the valuation flow.
type ValuationInput struct {
	Details VehicleDetails
}

func (ValuationInput) Step() StepID { return StepVehicleDetails }

func (in ValuationInput) Validate() error {
	d := in.Details
	return fromOzzo(validation.ValidateStruct(&d,
		validation.Field(&d.Mileage, required("Mileage"), validation.Min(1).Error("Mileage must be greater than zero")),
		validation.Field(&d.Condition, required("Condition"), validation.In("excellent", "good", "fair", "poor").Error("Select a valid condition")),
	))
}

type DocumentsInput struct {
	Required []DocumentKind
	Files    []DocumentUpload
}

func (DocumentsInput) Step() StepID { return StepUploadDocuments }

func (in DocumentsInput) Validate() error {
	errs := ValidationErrors{}
	byKind := make(map[DocumentKind]DocumentUpload, len(in.Files))
	for _, f := range in.Files {
		byKind[f.Kind] = f
	}
	for _, k := range in.Required {
		f, ok := byKind[k]
		if !ok || len(f.Data) == 0 {
			errs[string(k)] = "Please upload this document"
			continue
		}
		if len(f.Data) > MaxDocumentSize {
			errs[string(k)] = "File must be 5MB or smaller"
			continue
		}
		if !allowedDocumentTypes[DocumentContentType(f.Data)] {
			errs[string(k)] = "Upload a PDF, JPEG or PNG file"
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// DocumentContentType sniffs the upload instead of trusting the client header.
func DocumentContentType(data []byte) string {
	ct := http.DetectContentType(data)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return ct
}

type AdditionalInfoInput struct {
	Info AdditionalInfo
}

func (AdditionalInfoInput) Step() StepID { return StepAdditionalInformation }

func (in AdditionalInfoInput) Validate() error {
	a := in.Info
	return fromOzzo(validation.ValidateStruct(&a,
		validation.Field(&a.CertificateNumber, required("Certificate number")),
		validation.Field(&a.PreviousState, required("Previous state of registration")),
		validation.Field(&a.Notes, validation.RuneLength(0, 500)),
	))
}

type OTPInput struct {
	OTP string `json:"otp"`
}

func (OTPInput) Step() StepID { return StepVerifyOTP }

func (in OTPInput) Validate() error {
	return fromOzzo(validation.Errors{
		"otp": validation.Validate(strings.TrimSpace(in.OTP),
			required("OTP"),
			validation.Match(otpPattern).Error(MsgOTPLength),
		),
	}.Filter())
}

// LoginInput is the admin login form.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in LoginInput) Validate() error {
	return fromOzzo(validation.ValidateStruct(&in,
		validation.Field(&in.Email, required("Email"), is.EmailFormat.Error(MsgEmailFormat)),
		validation.Field(&in.Password, required("Password")),
	))
}
