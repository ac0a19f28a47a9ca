// internal/models/draft.go
package models

// Section names accepted by the draft store's merge operation. Ownership
// and diligence files are structured collections with their own
// operations and are not merge targets.
const (
	SectionPersonal  = "personal"
	SectionCompany   = "company"
	SectionTicketing = "ticketing"
	SectionVolume    = "volume"
	SectionFunds     = "funds"
	SectionFinances  = "finances"
)

// MergeableSections lists every section name MergeSection accepts.
var MergeableSections = []string{
	SectionPersonal,
	SectionCompany,
	SectionTicketing,
	SectionVolume,
	SectionFunds,
	SectionFinances,
}

// Application stages, in fixed order.
const (
	StageBusiness  = 1
	StageTicketing = 2
	StageFunding   = 3
	StageOwnership = 4
	StageDiligence = 5

	StageCount = 5
)

// Required-document slots collected on the diligence stage.
var DefaultFileSlots = []string{
	"bankStatements",
	"ticketingStatements",
	"financialStatements",
	"voidedCheck",
}

// FileDescriptor describes a file selected in the browser session. It
// carries no binary content; the payload lives in the session's file
// inputs and does not survive a full reload.
type FileDescriptor struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	SizeBytes  int64  `json:"sizeBytes"`
	MimeType   string `json:"mimeType"`
	RecordedAt string `json:"recordedAt"`
}

// FileSlot holds the transient metadata for one required-document field.
type FileSlot struct {
	FileInfos []FileDescriptor `json:"fileInfos"`
}

// Owner is one row of the ownership section, replaced wholesale rather
// than merged.
type Owner struct {
	FirstName        string  `json:"firstName"`
	LastName         string  `json:"lastName"`
	Email            string  `json:"email"`
	Title            string  `json:"title,omitempty"`
	OwnershipPercent float64 `json:"ownershipPercent"`
}

// ApplicationDraft is the session-scoped record of all answers for one
// in-progress application. One instance per session; all mutation goes
// through the draft store's named operations.
type ApplicationDraft struct {
	AccountKey       string                            `json:"accountKey"`
	CurrentStage     int                               `json:"currentStage"`
	Sections         map[string]map[string]interface{} `json:"sections"`
	Owners           []Owner                           `json:"owners"`
	DiligenceFiles   map[string]*FileSlot              `json:"diligenceFiles"`
	SubmittedLocally bool                              `json:"isSubmittedLocally"`
}

// NewDraft returns a freshly-initialized default draft for an account.
func NewDraft(accountKey string) *ApplicationDraft {
	sections := make(map[string]map[string]interface{}, len(MergeableSections))
	for _, name := range MergeableSections {
		sections[name] = map[string]interface{}{}
	}
	slots := make(map[string]*FileSlot, len(DefaultFileSlots))
	for _, name := range DefaultFileSlots {
		slots[name] = &FileSlot{FileInfos: []FileDescriptor{}}
	}
	return &ApplicationDraft{
		AccountKey:     accountKey,
		CurrentStage:   StageBusiness,
		Sections:       sections,
		Owners:         []Owner{},
		DiligenceFiles: slots,
	}
}

// Clone returns a copy safe to hand to presentation code. Section maps
// are copied one level deep; stored values are treated as immutable
// JSON data after the merge that introduced them.
func (d *ApplicationDraft) Clone() *ApplicationDraft {
	sections := make(map[string]map[string]interface{}, len(d.Sections))
	for name, section := range d.Sections {
		copied := make(map[string]interface{}, len(section))
		for k, v := range section {
			copied[k] = v
		}
		sections[name] = copied
	}

	slots := make(map[string]*FileSlot, len(d.DiligenceFiles))
	for name, slot := range d.DiligenceFiles {
		infos := make([]FileDescriptor, len(slot.FileInfos))
		copy(infos, slot.FileInfos)
		slots[name] = &FileSlot{FileInfos: infos}
	}

	owners := make([]Owner, len(d.Owners))
	copy(owners, d.Owners)

	return &ApplicationDraft{
		AccountKey:       d.AccountKey,
		CurrentStage:     d.CurrentStage,
		Sections:         sections,
		Owners:           owners,
		DiligenceFiles:   slots,
		SubmittedLocally: d.SubmittedLocally,
	}
}

// SubmissionState is the reconciled view of local and remote submission
// status. RemoteConfirmed is nil until the remote check has run in the
// current surface entry.
type SubmissionState struct {
	LocalFlag       bool   `json:"localFlag"`
	RemoteConfirmed *bool  `json:"remoteConfirmed"`
	LastCheckError  string `json:"lastCheckError,omitempty"`
}
