package timeline

import (
	"fmt"

	"github.com/Tilix4/kdenlive/internal/engine/ident"
)

// Resize sets an item's position and source span.
type Resize struct {
	Item     ident.ID `yaml:"item"`
	Position int      `yaml:"position"`
	In       int      `yaml:"in"`
	Out      int      `yaml:"out"`
}

func (e Resize) Target() ident.ID { return e.Item }
func (e Resize) Kind() string     { return "timeline.resize" }
func (e Resize) Describe() string {
	return fmt.Sprintf("resize %d to [%d, %d] at %d", e.Item, e.In, e.Out, e.Position)
}

// Attach records which track an item sits on. Track Invalid detaches.
type Attach struct {
	Item     ident.ID `yaml:"item"`
	Track    ident.ID `yaml:"track"`
	Position int      `yaml:"position"`
}

func (e Attach) Target() ident.ID { return e.Item }
func (e Attach) Kind() string     { return "timeline.attach" }
func (e Attach) Describe() string {
	return fmt.Sprintf("attach %d to track %d at %d", e.Item, e.Track, e.Position)
}

// SetState changes the audio/video state of a clip.
type SetState struct {
	Item  ident.ID  `yaml:"item"`
	State ClipState `yaml:"state"`
}

func (e SetState) Target() ident.ID { return e.Item }
func (e SetState) Kind() string     { return "timeline.set_state" }
func (e SetState) Describe() string {
	return fmt.Sprintf("set %d state to %s", e.Item, e.State)
}

// SetSpeed retimes a clip: its source is Length frames long at Speed and
// plays [In, Out].
type SetSpeed struct {
	Item   ident.ID `yaml:"item"`
	Speed  float64  `yaml:"speed"`
	Length int      `yaml:"length"`
	In     int      `yaml:"in"`
	Out    int      `yaml:"out"`
}

func (e SetSpeed) Target() ident.ID { return e.Item }
func (e SetSpeed) Kind() string     { return "timeline.set_speed" }
func (e SetSpeed) Describe() string {
	return fmt.Sprintf("set %d speed to %g over [%d, %d]", e.Item, e.Speed, e.In, e.Out)
}

// SetATrack changes the track a composition blends onto. -1 clears it.
type SetATrack struct {
	Item   ident.ID `yaml:"item"`
	ATrack int      `yaml:"a_track"`
}

func (e SetATrack) Target() ident.ID { return e.Item }
func (e SetATrack) Kind() string     { return "timeline.set_a_track" }
func (e SetATrack) Describe() string {
	return fmt.Sprintf("set %d a-track to %d", e.Item, e.ATrack)
}

// ForceTrack pins a composition to its a-track.
type ForceTrack struct {
	Item   ident.ID `yaml:"item"`
	Forced bool     `yaml:"forced"`
}

func (e ForceTrack) Target() ident.ID { return e.Item }
func (e ForceTrack) Kind() string     { return "timeline.force_track" }
func (e ForceTrack) Describe() string {
	return fmt.Sprintf("force %d to a-track: %v", e.Item, e.Forced)
}

// TrackResize updates an item's entry on a track.
type TrackResize struct {
	Track    ident.ID `yaml:"track"`
	Item     ident.ID `yaml:"item"`
	Position int      `yaml:"position"`
	Length   int      `yaml:"length"`
}

func (e TrackResize) Target() ident.ID { return e.Track }
func (e TrackResize) Kind() string     { return "track.resize" }
func (e TrackResize) Describe() string {
	return fmt.Sprintf("track %d: %d to %d+%d", e.Track, e.Item, e.Position, e.Length)
}

// TrackInsert places an item on a track.
type TrackInsert struct {
	Track    ident.ID `yaml:"track"`
	Item     ident.ID `yaml:"item"`
	Position int      `yaml:"position"`
	Length   int      `yaml:"length"`
}

func (e TrackInsert) Target() ident.ID { return e.Track }
func (e TrackInsert) Kind() string     { return "track.insert" }
func (e TrackInsert) Describe() string {
	return fmt.Sprintf("track %d: insert %d at %d+%d", e.Track, e.Item, e.Position, e.Length)
}

// TrackRemove takes an item off a track.
type TrackRemove struct {
	Track ident.ID `yaml:"track"`
	Item  ident.ID `yaml:"item"`
}

func (e TrackRemove) Target() ident.ID { return e.Track }
func (e TrackRemove) Kind() string     { return "track.remove" }
func (e TrackRemove) Describe() string {
	return fmt.Sprintf("track %d: remove %d", e.Track, e.Item)
}
