package service

import (
	"errors"
	"slices"

	"github.com/postdeck/calendar-engine/internal/models"
)

var (
	ErrMediaNotStaged = errors.New("media item is not in the staged pool")
	ErrSelectionFull  = errors.New("platform media limit reached")
	ErrNoSuchSegment  = errors.New("thread segment does not exist")
)

// MediaSelectionService toggles membership of staged media in a
// platform's ordered selection. Order encodes carousel position;
// position 0 is the cover. Ceilings come from the platform rule table
// and the action is simply refused when full, never applied partially.
type MediaSelectionService interface {
	Toggle(store *DraftStore, platform, uid string) error
	ToggleForThread(store *DraftStore, platform string, threadIndex int, uid string) error
}

type mediaSelectionService struct{}

func NewMediaSelectionService() MediaSelectionService {
	return &mediaSelectionService{}
}

func (m *mediaSelectionService) Toggle(store *DraftStore, platform, uid string) error {
	var err error
	store.Update(func(d *models.Draft) {
		err = toggleSelection(d, platform, uid, d.Selections[platform], func(uids []string) {
			d.Selections[platform] = uids
		})
	})
	return err
}

// ToggleForThread scopes the same toggle semantics to one thread
// segment instead of the flat per-platform selection.
func (m *mediaSelectionService) ToggleForThread(store *DraftStore, platform string, threadIndex int, uid string) error {
	var err error
	store.Update(func(d *models.Draft) {
		chain := d.PlatformThreads[platform]
		if threadIndex < 0 || threadIndex >= len(chain) {
			err = ErrNoSuchSegment
			return
		}
		err = toggleSelection(d, platform, uid, chain[threadIndex].MediaUIDs, func(uids []string) {
			chain[threadIndex].MediaUIDs = uids
			d.PlatformThreads[platform] = chain
		})
	})
	return err
}

func toggleSelection(d *models.Draft, platform, uid string, selected []string, commit func([]string)) error {
	item, ok := stagedItem(d, uid)
	if !ok {
		return ErrMediaNotStaged
	}

	// Toggling off removes the item and closes the gap, shifting every
	// later carousel position down by one.
	if i := slices.Index(selected, uid); i >= 0 {
		commit(slices.Delete(slices.Clone(selected), i, i+1))
		return nil
	}

	rules := RulesFor(platform)
	images, videos := countByType(d, selected)
	if !rules.CanAdd(images, videos, item.Type) {
		return ErrSelectionFull
	}

	// New items append, becoming last in carousel order.
	commit(append(slices.Clone(selected), uid))
	return nil
}

func stagedItem(d *models.Draft, uid string) (models.MediaItem, bool) {
	for _, m := range d.Media {
		if m.UID == uid {
			return m, true
		}
	}
	return models.MediaItem{}, false
}

func countByType(d *models.Draft, uids []string) (images, videos int) {
	for _, uid := range uids {
		item, ok := stagedItem(d, uid)
		if !ok {
			continue
		}
		if item.Type == models.MediaTypeVideo {
			videos++
		} else {
			images++
		}
	}
	return images, videos
}
