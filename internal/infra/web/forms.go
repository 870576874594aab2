package web

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"pals-portal/internal/domain"
	"pals-portal/internal/domain/model"
)

// actionKeys names the catalog entry holding each step's fallback error.
var actionKeys = map[model.StepID]string{
	model.StepEnterVIN:              "error.verify_vin",
	model.StepOwnerInformation:      "error.owner_information",
	model.StepVehicleDetails:        "error.vehicle_details",
	model.StepUploadDocuments:       "error.upload_documents",
	model.StepAdditionalInformation: "error.additional_information",
	model.StepVerifyOTP:             "error.verify_otp",
	model.StepNextOwnerInformation:  "error.next_owner",
	model.StepReview:                "error.initiate_payment",
}

func actionKey(flow model.Flow, step model.StepID) string {
	if flow.Kind == model.FlowValuation && step == model.StepVehicleDetails {
		return "error.valuation"
	}
	if k, ok := actionKeys[step]; ok {
		return k
	}
	return "error.unexpected"
}

// pageName maps a step to its template.
func pageName(step model.StepID) string {
	if step == model.StepNextOwnerInformation {
		return string(model.StepOwnerInformation)
	}
	return string(step)
}

var errUploadTooLarge = errors.New("upload too large")

// parseStep turns the posted form of step into its StepInput.
func parseStep(w http.ResponseWriter, r *http.Request, flow model.Flow, step model.StepID) (model.StepInput, error) {
	if step == model.StepUploadDocuments {
		return parseDocuments(w, r, flow)
	}
	if err := r.ParseForm(); err != nil {
		return nil, domain.ErrInvalidArgument
	}
	f := func(name string) string { return strings.TrimSpace(r.PostForm.Get(name)) }

	switch step {
	case model.StepEnterVIN:
		return model.VINInput{VIN: f("vin")}, nil
	case model.StepOwnerInformation, model.StepNextOwnerInformation:
		return model.OwnerInput{
			Next: step == model.StepNextOwnerInformation,
			Owner: model.OwnerInfo{
				FullName: f("fullName"),
				Email:    f("email"),
				Phone:    f("phone"),
				NIN:      f("nin"),
				Address:  f("address"),
				State:    f("state"),
				LGA:      f("lga"),
			},
		}, nil
	case model.StepVehicleDetails:
		mileage, err := parseMileage(f("mileage"))
		if err != nil {
			return nil, err
		}
		d := model.VehicleDetails{
			EngineNumber:  f("engineNumber"),
			ChassisNumber: f("chassisNumber"),
			PlateNumber:   strings.ToUpper(f("plateNumber")),
			Usage:         f("usage"),
			Mileage:       mileage,
			Condition:     f("condition"),
		}
		if flow.Kind == model.FlowValuation {
			return model.ValuationInput{Details: d}, nil
		}
		return model.VehicleDetailsInput{Details: d}, nil
	case model.StepAdditionalInformation:
		return model.AdditionalInfoInput{Info: model.AdditionalInfo{
			CertificateNumber: f("certificateNumber"),
			PreviousState:     f("previousState"),
			Notes:             f("notes"),
		}}, nil
	case model.StepVerifyOTP:
		return model.OTPInput{OTP: f("otp")}, nil
	}
	return nil, domain.ErrIllegalTransition
}

// parseMileage accepts digits with optional thousands separators. Blank is
// zero and left to the step's own rules.
func parseMileage(raw string) (int, error) {
	raw = strings.ReplaceAll(raw, ",", "")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, model.ValidationErrors{"mileage": model.MsgMileageFormat}
	}
	return n, nil
}

// parseDocuments reads one file per required document kind. Files over the
// size limit are cut one byte past it so validation reports them.
func parseDocuments(w http.ResponseWriter, r *http.Request, flow model.Flow) (model.StepInput, error) {
	limit := int64(len(flow.Documents)+1) * (model.MaxDocumentSize + 1<<10)
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, errUploadTooLarge
		}
		return nil, domain.ErrInvalidArgument
	}
	defer r.MultipartForm.RemoveAll()

	in := model.DocumentsInput{Required: flow.Documents}
	for _, kind := range flow.Documents {
		file, hdr, err := r.FormFile(string(kind))
		if err != nil {
			continue
		}
		data, err := io.ReadAll(io.LimitReader(file, model.MaxDocumentSize+1))
		file.Close()
		if err != nil {
			return nil, err
		}
		if len(data) == 0 {
			continue
		}
		in.Files = append(in.Files, model.DocumentUpload{
			Kind:        kind,
			FileName:    hdr.Filename,
			ContentType: model.DocumentContentType(data),
			Data:        data,
		})
	}
	return in, nil
}

// postedValues echoes a rejected form back into the page.
func postedValues(r *http.Request) map[string]string {
	out := map[string]string{}
	for k, v := range r.PostForm {
		if len(v) > 0 && k != "otp" {
			out[k] = v[0]
		}
	}
	return out
}

// formFromState pre-fills a step's form with what the citizen entered
// before, so going back never loses data.
func formFromState(step model.StepID, s *model.WizardState) map[string]string {
	out := map[string]string{}
	if s == nil {
		return out
	}
	owner := func(o *model.OwnerInfo) {
		if o == nil {
			return
		}
		out["fullName"], out["email"], out["phone"] = o.FullName, o.Email, o.Phone
		out["nin"], out["address"], out["state"], out["lga"] = o.NIN, o.Address, o.State, o.LGA
	}
	switch step {
	case model.StepEnterVIN:
		out["vin"] = s.VIN
	case model.StepOwnerInformation:
		owner(s.Owner)
	case model.StepNextOwnerInformation:
		owner(s.NextOwner)
	case model.StepVehicleDetails:
		if d := s.VehicleDetails; d != nil {
			out["engineNumber"], out["chassisNumber"], out["plateNumber"] = d.EngineNumber, d.ChassisNumber, d.PlateNumber
			out["usage"], out["condition"] = d.Usage, d.Condition
			if d.Mileage > 0 {
				out["mileage"] = strconv.Itoa(d.Mileage)
			}
		}
	case model.StepAdditionalInformation:
		if a := s.Additional; a != nil {
			out["certificateNumber"], out["previousState"], out["notes"] = a.CertificateNumber, a.PreviousState, a.Notes
		}
	}
	return out
}
