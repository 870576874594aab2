//go:build !integration

package model

import (
	"bytes"
	"testing"
)

func TestVINInput_Validate(t *testing.T) {
	t.Run("17 characters accepted", func(t *testing.T) {
		if err := (VINInput{VIN: "1HGCM82633A004352"}).Validate(); err != nil {
			t.Fatalf("expected valid VIN, got %v", err)
		}
	})

	t.Run("16 characters rejected with exact message", func(t *testing.T) {
		err := (VINInput{VIN: "1HGCM82633A00435"}).Validate()
		ve, ok := AsValidationErrors(err)
		if !ok {
			t.Fatalf("expected ValidationErrors, got %v", err)
		}
		if ve["vin"] != MsgVINLength {
			t.Errorf("expected %q, got %q", MsgVINLength, ve["vin"])
		}
	})

	t.Run("empty is required", func(t *testing.T) {
		ve, _ := AsValidationErrors((VINInput{VIN: "  "}).Validate())
		if ve["vin"] != "VIN is required" {
			t.Errorf("unexpected message %q", ve["vin"])
		}
	})

	t.Run("lowercase is normalized", func(t *testing.T) {
		in := VINInput{VIN: " 1hgcm82633a004352 "}
		if in.Normalized() != "1HGCM82633A004352" {
			t.Errorf("unexpected normalization %q", in.Normalized())
		}
	})
}

func TestOTPInput_Validate(t *testing.T) {
	ve, ok := AsValidationErrors((OTPInput{OTP: "12345"}).Validate())
	if !ok || ve["otp"] != MsgOTPLength {
		t.Fatalf("expected %q, got %v", MsgOTPLength, ve)
	}
	if ve, _ := AsValidationErrors((OTPInput{OTP: "12a456"}).Validate()); ve["otp"] != MsgOTPLength {
		t.Errorf("letters should be rejected, got %v", ve)
	}
	if err := (OTPInput{OTP: "123456"}).Validate(); err != nil {
		t.Errorf("expected valid OTP, got %v", err)
	}
}

func TestOwnerInput_Validate(t *testing.T) {
	good := OwnerInfo{
		FullName: "Ada Obi",
		Email:    "ada@example.com",
		Phone:    "08031234567",
		NIN:      "12345678901",
		Address:  "1 Marina",
		State:    "LA",
		LGA:      "Ikeja",
	}
	if err := (OwnerInput{Owner: good}).Validate(); err != nil {
		t.Fatalf("expected valid owner, got %v", err)
	}

	bad := good
	bad.Email = "not-an-email"
	bad.Phone = "12345"
	bad.NIN = "123"
	bad.LGA = ""
	ve, ok := AsValidationErrors((OwnerInput{Owner: bad}).Validate())
	if !ok {
		t.Fatal("expected validation errors")
	}
	want := map[string]string{
		"email": MsgEmailFormat,
		"phone": MsgPhoneFormat,
		"nin":   MsgNINLength,
		"lga":   "LGA is required",
	}
	for field, msg := range want {
		if ve[field] != msg {
			t.Errorf("%s: expected %q, got %q", field, msg, ve[field])
		}
	}
}

func TestDocumentsInput_Validate(t *testing.T) {
	pdf := append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte("a"), 32)...)
	exe := []byte("MZ\x90\x00binary")

	in := DocumentsInput{
		Required: []DocumentKind{DocSaleAgreement, DocMeansOfID},
		Files: []DocumentUpload{
			{Kind: DocSaleAgreement, FileName: "a.pdf", Data: pdf},
			{Kind: DocMeansOfID, FileName: "id.exe", Data: exe},
		},
	}
	ve, ok := AsValidationErrors(in.Validate())
	if !ok {
		t.Fatal("expected validation errors")
	}
	if _, bad := ve[string(DocSaleAgreement)]; bad {
		t.Errorf("pdf should be accepted: %v", ve)
	}
	if ve[string(DocMeansOfID)] == "" {
		t.Error("executable should be rejected")
	}

	in.Files = in.Files[:1]
	ve, _ = AsValidationErrors(in.Validate())
	if ve[string(DocMeansOfID)] != "Please upload this document" {
		t.Errorf("missing document not reported: %v", ve)
	}
}

func TestValuationInput_Validate(t *testing.T) {
	if err := (ValuationInput{Details: VehicleDetails{Mileage: 42000, Condition: "good"}}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ve, _ := AsValidationErrors((ValuationInput{Details: VehicleDetails{Condition: "shiny"}}).Validate())
	if ve["mileage"] == "" || ve["condition"] == "" {
		t.Errorf("expected mileage and condition errors, got %v", ve)
	}
}
