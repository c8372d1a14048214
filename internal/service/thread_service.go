package service

import (
	"errors"
	"slices"

	"github.com/postdeck/calendar-engine/internal/models"
)

var (
	ErrThreadingUnsupported = errors.New("platform does not support threading")
	ErrThreadFull           = errors.New("thread chain is at its maximum length")
)

// ThreadService manages the ordered text+media chains for the platforms
// that publish native threads. A platform-specific chain, once created,
// takes precedence over the generic chain for editing and persistence;
// the generic chain is only the pre-platform default.
type ThreadService interface {
	EffectiveChain(store *DraftStore, platform string) []models.ThreadMessage
	AddSegment(store *DraftStore, platform string) error
	RemoveSegment(store *DraftStore, platform string, index int) error
	UpdateSegmentText(store *DraftStore, platform string, index int, text string) error
	ToggleSegmentMedia(store *DraftStore, platform string, index int, uid string) error
}

type threadService struct {
	media MediaSelectionService
}

func NewThreadService(media MediaSelectionService) ThreadService {
	return &threadService{media: media}
}

func (t *threadService) EffectiveChain(store *DraftStore, platform string) []models.ThreadMessage {
	d := store.Snapshot()
	if chain, ok := d.PlatformThreads[platform]; ok {
		return chain
	}
	return d.Thread
}

// ensureChain copies the generic chain into a platform override the
// first time that platform's thread is edited.
func ensureChain(d *models.Draft, platform string) []models.ThreadMessage {
	if chain, ok := d.PlatformThreads[platform]; ok {
		return chain
	}
	chain := make([]models.ThreadMessage, len(d.Thread))
	for i, seg := range d.Thread {
		chain[i] = models.ThreadMessage{Text: seg.Text, MediaUIDs: slices.Clone(seg.MediaUIDs)}
	}
	d.PlatformThreads[platform] = chain
	return chain
}

func (t *threadService) AddSegment(store *DraftStore, platform string) error {
	if !RulesFor(platform).SupportsThreading {
		return ErrThreadingUnsupported
	}

	var err error
	store.Update(func(d *models.Draft) {
		chain := ensureChain(d, platform)
		if len(chain) >= models.MaxThreadLength {
			err = ErrThreadFull
			return
		}
		d.PlatformThreads[platform] = append(chain, models.ThreadMessage{})
	})
	return err
}

// RemoveSegment compacts the chain; positions of later segments shift
// down implicitly since position is positional.
func (t *threadService) RemoveSegment(store *DraftStore, platform string, index int) error {
	var err error
	store.Update(func(d *models.Draft) {
		chain := ensureChain(d, platform)
		if index < 0 || index >= len(chain) {
			err = ErrNoSuchSegment
			return
		}
		d.PlatformThreads[platform] = slices.Delete(chain, index, index+1)
	})
	return err
}

func (t *threadService) UpdateSegmentText(store *DraftStore, platform string, index int, text string) error {
	var err error
	store.Update(func(d *models.Draft) {
		chain := ensureChain(d, platform)
		if index < 0 || index >= len(chain) {
			err = ErrNoSuchSegment
			return
		}
		chain[index].Text = text
		d.PlatformThreads[platform] = chain
	})
	return err
}

func (t *threadService) ToggleSegmentMedia(store *DraftStore, platform string, index int, uid string) error {
	store.Update(func(d *models.Draft) {
		ensureChain(d, platform)
	})
	return t.media.ToggleForThread(store, platform, index, uid)
}
