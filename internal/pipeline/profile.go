package pipeline

import (
	"errors"
	"fmt"

	"github.com/therealutkarshpriyadarshi/shortgen/internal/timeline"
	"github.com/therealutkarshpriyadarshi/shortgen/pkg/models"
)

// ErrUnknownProfile is returned for a profile name that is not registered
var ErrUnknownProfile = errors.New("unknown profile")

// Profile selects how topics are found, scripted and timed
type Profile struct {
	Name string
	// Padding is the policy applied to the measured narration
	Padding timeline.PaddingPolicy
	// FixedCaptions gives every script line CaptionSeconds on screen instead
	// of its measured narration length
	FixedCaptions bool
	// MasterOnly renders one video in the base language and subtitles for
	// every other language, each timed on its own narration
	MasterOnly bool
	// DiscoverTopics fetches trending topics when the request names none
	DiscoverTopics bool
}

// LookupProfile returns the named profile. The daily profile pads with
// configuredPadding; the others never pad.
func LookupProfile(name string, configuredPadding timeline.PaddingPolicy) (Profile, error) {
	switch name {
	case "", models.ProfileDaily:
		return Profile{
			Name:       models.ProfileDaily,
			Padding:    configuredPadding,
			MasterOnly: true,
		}, nil
	case models.ProfileTrends:
		return Profile{
			Name:           models.ProfileTrends,
			Padding:        timeline.PaddingNone,
			FixedCaptions:  true,
			DiscoverTopics: true,
		}, nil
	case models.ProfileStory:
		return Profile{
			Name:           models.ProfileStory,
			Padding:        timeline.PaddingNone,
			DiscoverTopics: true,
		}, nil
	}
	return Profile{}, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
}

// Profiles lists the registered profile names
func Profiles() []string {
	return []string{models.ProfileDaily, models.ProfileTrends, models.ProfileStory}
}
