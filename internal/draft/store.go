// internal/draft/store.go
package draft

import (
	"context"
	"encoding/json"
	"fmt"

	"origination-intake/internal/common/errors"
	"origination-intake/internal/common/logger"
	"origination-intake/internal/common/metrics"
	"origination-intake/internal/models"
)

// SnapshotStore is the durable snapshot collaborator. Snapshots carry
// draft answers and file metadata only, never binary payloads.
type SnapshotStore interface {
	Write(ctx context.Context, accountKey string, data []byte) error
	Read(ctx context.Context, accountKey string) ([]byte, error) // nil when absent
	Clear(ctx context.Context, accountKey string) error
}

// Store owns the single ApplicationDraft for one session. All mutation
// goes through the named operations below; each successful mutation
// synchronously re-persists the snapshot.
type Store struct {
	snapshots SnapshotStore
	logger    logger.Logger
	draft     *models.ApplicationDraft
}

func NewStore(accountKey string, snapshots SnapshotStore, log logger.Logger) *Store {
	return &Store{
		snapshots: snapshots,
		logger:    log.WithFields(map[string]interface{}{"component": "draft-store", "accountKey": accountKey}),
		draft:     models.NewDraft(accountKey),
	}
}

// Load seeds the draft from a durable snapshot if one exists. The
// first return reports whether a snapshot was restored, so the caller
// knows when to fall back to the server-side copy.
// liveBinaryIDs names the file binaries still attached in the current
// session (empty after a full reload). Any diligence slot holding a
// descriptor without a live binary is force-reset to empty and the
// snapshot re-persisted; the healed slot names are returned so the UI
// can show its one-time re-attach notice.
func (s *Store) Load(ctx context.Context, liveBinaryIDs []string) (bool, []string, error) {
	data, err := s.snapshots.Read(ctx, s.draft.AccountKey)
	if err != nil {
		return false, nil, errors.NewSnapshotReadFailed(err)
	}
	if data == nil {
		return false, nil, nil
	}

	restored := models.NewDraft(s.draft.AccountKey)
	if err := json.Unmarshal(data, restored); err != nil {
		// A corrupt snapshot must not lock the applicant out; start fresh.
		s.logger.Warn("discarding unreadable snapshot", map[string]interface{}{
			"error": err,
		})
		return false, nil, s.persist(ctx)
	}
	normalize(restored)
	s.draft = restored

	live := make(map[string]bool, len(liveBinaryIDs))
	for _, id := range liveBinaryIDs {
		live[id] = true
	}

	healed := s.healFileSlots(live)
	if len(healed) > 0 {
		s.logger.Info("reset file slots without attached binaries", map[string]interface{}{
			"slots": healed,
		})
		if err := s.persist(ctx); err != nil {
			return true, healed, err
		}
	}
	return true, healed, nil
}

// Adopt replaces the draft with the platform's server-side copy and
// persists it as the new snapshot. The local account key wins over
// whatever the payload carries.
func (s *Store) Adopt(ctx context.Context, remote *models.ApplicationDraft) error {
	adopted := remote.Clone()
	adopted.AccountKey = s.draft.AccountKey
	normalize(adopted)
	s.draft = adopted
	return s.persist(ctx)
}

// healFileSlots empties every slot referencing a binary the session no
// longer holds. Metadata without content is never left standing.
func (s *Store) healFileSlots(live map[string]bool) []string {
	var healed []string
	for name, slot := range s.draft.DiligenceFiles {
		if len(slot.FileInfos) == 0 {
			continue
		}
		missing := false
		for _, info := range slot.FileInfos {
			if !live[info.ID] {
				missing = true
				break
			}
		}
		if missing {
			slot.FileInfos = []models.FileDescriptor{}
			healed = append(healed, name)
		}
	}
	return healed
}

// Get returns a copy of the draft safe to expose to presentation code.
func (s *Store) Get() *models.ApplicationDraft {
	return s.draft.Clone()
}

// MergeSection shallow-merges patch into the named section. Keys absent
// from the patch keep their current values. Recomputing anything derived
// (the offer) is the caller's responsibility after the merge completes.
func (s *Store) MergeSection(ctx context.Context, section string, patch map[string]interface{}) error {
	current, ok := s.draft.Sections[section]
	if !ok {
		return errors.NewUnknownSection(section)
	}

	for k, v := range patch {
		current[k] = v
	}

	metrics.SectionMerges.WithLabelValues(section).Inc()
	return s.persist(ctx)
}

// ReplaceOwners replaces the ownership list wholesale.
func (s *Store) ReplaceOwners(ctx context.Context, owners []models.Owner) error {
	replaced := make([]models.Owner, len(owners))
	copy(replaced, owners)
	s.draft.Owners = replaced
	return s.persist(ctx)
}

// SetFileSlot records the metadata for files selected into a
// required-document slot. Binary content is never stored.
func (s *Store) SetFileSlot(ctx context.Context, slot string, infos []models.FileDescriptor) error {
	target, ok := s.draft.DiligenceFiles[slot]
	if !ok {
		return errors.NewUnknownSection(slot)
	}
	target.FileInfos = make([]models.FileDescriptor, len(infos))
	copy(target.FileInfos, infos)
	return s.persist(ctx)
}

// SetStage records the applicant's current screen.
func (s *Store) SetStage(ctx context.Context, stage int) error {
	if stage < models.StageBusiness || stage > models.StageCount {
		return fmt.Errorf("stage out of range: %d", stage)
	}
	s.draft.CurrentStage = stage
	return s.persist(ctx)
}

// SetSubmittedLocally flips the local submitted flag. Called only after
// the remote collaborator has accepted the submission.
func (s *Store) SetSubmittedLocally(ctx context.Context) error {
	s.draft.SubmittedLocally = true
	return s.persist(ctx)
}

// Reset clears the draft and its snapshot. Never invoked implicitly.
func (s *Store) Reset(ctx context.Context) error {
	if err := s.snapshots.Clear(ctx, s.draft.AccountKey); err != nil {
		return errors.NewSnapshotWriteFailed(err)
	}
	s.draft = models.NewDraft(s.draft.AccountKey)
	return nil
}

func (s *Store) persist(ctx context.Context) error {
	data, err := json.Marshal(s.draft)
	if err != nil {
		metrics.SnapshotWrites.WithLabelValues("error").Inc()
		return errors.NewSnapshotWriteFailed(err)
	}
	if err := s.snapshots.Write(ctx, s.draft.AccountKey, data); err != nil {
		metrics.SnapshotWrites.WithLabelValues("error").Inc()
		return errors.NewSnapshotWriteFailed(err)
	}
	metrics.SnapshotWrites.WithLabelValues("ok").Inc()
	return nil
}

// normalize backfills sections and slots a snapshot from an older build
// may be missing.
func normalize(d *models.ApplicationDraft) {
	if d.Sections == nil {
		d.Sections = map[string]map[string]interface{}{}
	}
	for _, name := range models.MergeableSections {
		if d.Sections[name] == nil {
			d.Sections[name] = map[string]interface{}{}
		}
	}
	if d.DiligenceFiles == nil {
		d.DiligenceFiles = map[string]*models.FileSlot{}
	}
	for _, name := range models.DefaultFileSlots {
		if d.DiligenceFiles[name] == nil {
			d.DiligenceFiles[name] = &models.FileSlot{FileInfos: []models.FileDescriptor{}}
		}
	}
	if d.Owners == nil {
		d.Owners = []models.Owner{}
	}
	if d.CurrentStage < models.StageBusiness {
		d.CurrentStage = models.StageBusiness
	}
}
