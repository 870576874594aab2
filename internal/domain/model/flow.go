package model

// FlowKind identifies one service wizard.
type FlowKind string

const (
	FlowRegistration FlowKind = "registration"
	FlowMigration    FlowKind = "migration"
	FlowTransfer     FlowKind = "transfer"
	FlowRenewal      FlowKind = "renewal"
	FlowValuation    FlowKind = "valuation"
)

// StepID is the url token of a wizard step (/services/<flow>/<step>).
type StepID string

const (
	StepEnterVIN              StepID = "enter-vin"
	StepOwnerInformation      StepID = "owner-information"
	StepVehicleDetails        StepID = "vehicle-details"
	StepUploadDocuments       StepID = "upload-documents"
	StepAdditionalInformation StepID = "additional-information"
	StepVerifyOTP             StepID = "verify-otp"
	StepNextOwnerInformation  StepID = "next-owner-information"
	StepReview                StepID = "review"
	StepValuationResult       StepID = "valuation-result"
)

// DocumentKind names a document a flow asks the citizen to upload.
type DocumentKind string

const (
	DocProofOfOwnership DocumentKind = "proof-of-ownership"
	DocMeansOfID        DocumentKind = "means-of-identification"
	DocCustomsClearance DocumentKind = "customs-clearance"
	DocOldCertificate   DocumentKind = "old-certificate"
	DocSaleAgreement    DocumentKind = "sale-agreement"
	DocPoliceClearance  DocumentKind = "police-clearance"
)

type StepDef struct {
	ID    StepID
	Title string
}

// Flow is the fixed, ordered step table of one wizard.
type Flow struct {
	Kind      FlowKind
	Title     string
	Summary   string
	Segment   string      // backend collection name
	Service   ServiceType // empty when the flow takes no payment
	Steps     []StepDef
	Documents []DocumentKind
}

var flowOrder = []FlowKind{FlowRegistration, FlowMigration, FlowTransfer, FlowRenewal, FlowValuation}

var flows = map[FlowKind]Flow{
	FlowRegistration: {
		Kind:    FlowRegistration,
		Title:   "Vehicle Registration",
		Summary: "Register a new vehicle and get your plate number and certificate.",
		Segment: "registrations",
		Service: ServiceRegistration,
		Steps: []StepDef{
			{StepEnterVIN, "Enter VIN"},
			{StepOwnerInformation, "Owner Information"},
			{StepVehicleDetails, "Vehicle Details"},
			{StepUploadDocuments, "Upload Documents"},
			{StepReview, "Review & Pay"},
		},
		Documents: []DocumentKind{DocProofOfOwnership, DocMeansOfID, DocCustomsClearance},
	},
	FlowMigration: {
		Kind:    FlowMigration,
		Title:   "Certificate Migration",
		Summary: "Move a vehicle registered in another state onto this state's register.",
		Segment: "migrations",
		Service: ServiceMigration,
		Steps: []StepDef{
			{StepEnterVIN, "Enter VIN"},
			{StepOwnerInformation, "Owner Information"},
			{StepUploadDocuments, "Upload Documents"},
			{StepAdditionalInformation, "Additional Information"},
			{StepReview, "Review & Pay"},
		},
		Documents: []DocumentKind{DocOldCertificate, DocMeansOfID, DocPoliceClearance},
	},
	FlowTransfer: {
		Kind:    FlowTransfer,
		Title:   "Change of Ownership",
		Summary: "Transfer a registered vehicle to a new owner.",
		Segment: "transfers",
		Service: ServiceTransfer,
		Steps: []StepDef{
			{StepEnterVIN, "Enter VIN"},
			{StepVerifyOTP, "Verify Owner"},
			{StepNextOwnerInformation, "New Owner"},
			{StepUploadDocuments, "Upload Documents"},
			{StepReview, "Review & Pay"},
		},
		Documents: []DocumentKind{DocSaleAgreement, DocMeansOfID},
	},
	FlowRenewal: {
		Kind:    FlowRenewal,
		Title:   "License Renewal",
		Summary: "Renew your vehicle license before it expires.",
		Segment: "renewals",
		Service: ServiceRenewal,
		Steps: []StepDef{
			{StepEnterVIN, "Enter VIN"},
			{StepOwnerInformation, "Owner Information"},
			{StepReview, "Review & Pay"},
		},
	},
	FlowValuation: {
		Kind:    FlowValuation,
		Title:   "Vehicle Valuation",
		Summary: "Get an estimated market value for a vehicle.",
		Segment: "valuation",
		Steps: []StepDef{
			{StepEnterVIN, "Enter VIN"},
			{StepVehicleDetails, "Vehicle Condition"},
			{StepValuationResult, "Valuation"},
		},
	},
}

// LookupFlow returns the flow with the given url token.
func LookupFlow(kind string) (Flow, bool) {
	f, ok := flows[FlowKind(kind)]
	return f, ok
}

// Flows returns every implemented flow in catalog order.
func Flows() []Flow {
	out := make([]Flow, 0, len(flowOrder))
	for _, k := range flowOrder {
		out = append(out, flows[k])
	}
	return out
}

func (f Flow) Entry() StepID { return f.Steps[0].ID }

// IndexOf returns the position of the step, or -1 if the flow has no such step.
func (f Flow) IndexOf(id StepID) int {
	for i, s := range f.Steps {
		if s.ID == id {
			return i
		}
	}
	return -1
}

func (f Flow) Has(id StepID) bool { return f.IndexOf(id) >= 0 }

func (f Flow) Next(id StepID) (StepID, bool) {
	i := f.IndexOf(id)
	if i < 0 || i+1 >= len(f.Steps) {
		return "", false
	}
	return f.Steps[i+1].ID, true
}

func (f Flow) Payable() bool { return f.Service != "" }

func (f Flow) Path(step StepID) string {
	return "/services/" + string(f.Kind) + "/" + string(step)
}

func (f Flow) EntryPath() string { return f.Path(f.Entry()) }

// CompletePath is the landing page after a verified payment.
func (f Flow) CompletePath() string { return "/services/" + string(f.Kind) + "/complete" }

func (f Flow) StepTitle(id StepID) string {
	if i := f.IndexOf(id); i >= 0 {
		return f.Steps[i].Title
	}
	return ""
}

// Descriptors feeds the stepper.
func (f Flow) Descriptors() []StepDescriptor {
	out := make([]StepDescriptor, len(f.Steps))
	for i, s := range f.Steps {
		out[i] = StepDescriptor{Label: s.Title, Path: string(s.ID)}
	}
	return out
}
