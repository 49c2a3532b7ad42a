package timeline

import (
	"reflect"
	"testing"
	"time"

	"github.com/Tilix4/kdenlive/internal/effects/asset"
	"github.com/Tilix4/kdenlive/internal/effects/stack"
	"github.com/Tilix4/kdenlive/internal/engine/ident"
	"github.com/Tilix4/kdenlive/internal/event"
	"github.com/Tilix4/kdenlive/internal/media"
)

func newTimeline(t *testing.T, opts ...Option) (*Timeline, ident.ID) {
	t.Helper()
	tl := New(media.DefaultProfile(), asset.Builtin(), opts...)
	return tl, tl.AddTrack(VideoTrack, "V1")
}

func insertClip(t *testing.T, tl *Timeline, track ident.ID, position, length int) *Clip {
	t.Helper()
	id, ok := tl.InsertClip(media.NewProducer("clip.mp4", length), track, position)
	if !ok {
		t.Fatalf("InsertClip at %d failed", position)
	}
	c, _ := tl.Clip(id)
	return c
}

func mustConsistent(t *testing.T, tl *Timeline) {
	t.Helper()
	if err := tl.CheckConsistency(); err != nil {
		t.Fatalf("CheckConsistency() = %v", err)
	}
}

type geometryState struct {
	position, in, out int
}

func stateOf(it Item) geometryState {
	return geometryState{position: it.Position(), in: it.In(), out: it.Out()}
}

func TestResizeTrimStartShiftsFade(t *testing.T) {
	tl, track := newTimeline(t)
	c := insertClip(t, tl, track, 0, 100)

	fade, ok := c.Stack().AppendEffect(asset.FadeIn, false)
	if !ok {
		t.Fatal("AppendEffect failed")
	}
	if e, _ := c.Stack().Effect(fade); e.In != 0 || e.Out != 0 {
		t.Fatalf("new fade = [%d, %d], want [0, 0]", e.In, e.Out)
	}
	if !c.Stack().AdjustFadeLength(15, true, true, false) {
		t.Fatal("AdjustFadeLength failed")
	}
	if e, _ := c.Stack().Effect(fade); e.In != 0 || e.Out != 15 {
		t.Fatalf("adjusted fade = [%d, %d], want [0, 15]", e.In, e.Out)
	}

	if !tl.RequestItemResize(c.ID(), 50, false, true) {
		t.Fatal("RequestItemResize failed")
	}
	if c.In() != 50 || c.Out() != 99 {
		t.Errorf("clip = [%d, %d], want [50, 99]", c.In(), c.Out())
	}
	if c.Position() != 50 {
		t.Errorf("Position() = %d, want 50", c.Position())
	}
	if e, _ := c.Stack().Effect(fade); e.In != 50 || e.Out != 65 {
		t.Errorf("fade = [%d, %d], want [50, 65]", e.In, e.Out)
	}
	info, _ := tl.History().PeekUndo()
	if info.Description != "Resize clip" {
		t.Errorf("label = %q", info.Description)
	}
	mustConsistent(t, tl)

	if err := tl.Undo(); err != nil {
		t.Fatalf("Undo() = %v", err)
	}
	if c.In() != 0 || c.Out() != 99 || c.Position() != 0 {
		t.Errorf("after undo clip = [%d, %d] at %d", c.In(), c.Out(), c.Position())
	}
	if e, _ := c.Stack().Effect(fade); e.In != 0 || e.Out != 15 {
		t.Errorf("after undo fade = [%d, %d], want [0, 15]", e.In, e.Out)
	}
	mustConsistent(t, tl)

	if err := tl.Redo(); err != nil {
		t.Fatalf("Redo() = %v", err)
	}
	if e, _ := c.Stack().Effect(fade); e.In != 50 || e.Out != 65 {
		t.Errorf("after redo fade = [%d, %d], want [50, 65]", e.In, e.Out)
	}
	mustConsistent(t, tl)
}

func TestResizeIdempotent(t *testing.T) {
	tl, track := newTimeline(t)
	c := insertClip(t, tl, track, 0, 100)
	before := tl.History().UndoCount()

	for _, fromRight := range []bool{true, false} {
		if !tl.RequestItemResize(c.ID(), 100, fromRight, true) {
			t.Errorf("same-size resize (fromRight=%v) failed", fromRight)
		}
	}
	if got := stateOf(c); got != (geometryState{0, 0, 99}) {
		t.Errorf("state = %+v", got)
	}
	if got := tl.History().UndoCount(); got != before {
		t.Errorf("UndoCount() = %d, want %d", got, before)
	}
}

func TestResizeRejects(t *testing.T) {
	tests := []struct {
		name      string
		size      int
		fromRight bool
		setup     func(t *testing.T, tl *Timeline, track ident.ID, c *Clip)
	}{
		{"zero", 0, true, nil},
		{"negative", -5, false, nil},
		{"past media length", 101, true, nil},
		{"before source start", 60, false, func(t *testing.T, tl *Timeline, _ ident.ID, c *Clip) {
			// [0, 49]: the left edge has nothing before frame 0 to grow into.
			if !tl.RequestItemResize(c.ID(), 50, true, true) {
				t.Fatal("setup shrink failed")
			}
		}},
		{"past source end", 80, true, func(t *testing.T, tl *Timeline, _ ident.ID, c *Clip) {
			if !tl.RequestItemResize(c.ID(), 50, false, true) {
				t.Fatal("setup shrink failed")
			}
			if !tl.RequestItemResize(c.ID(), 40, true, true) {
				t.Fatal("setup shrink failed")
			}
		}},
		{"overlaps neighbour", 100, true, func(t *testing.T, tl *Timeline, track ident.ID, c *Clip) {
			if !tl.RequestItemResize(c.ID(), 50, true, true) {
				t.Fatal("setup shrink failed")
			}
			if _, ok := tl.InsertClip(media.NewProducer("b.mp4", 10), track, 260); !ok {
				t.Fatal("setup insert failed")
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl, track := newTimeline(t)
			c := insertClip(t, tl, track, 200, 100)
			if tt.setup != nil {
				tt.setup(t, tl, track, c)
			}
			before := stateOf(c)
			entries := tl.History().UndoCount()

			if tl.RequestItemResize(c.ID(), tt.size, tt.fromRight, true) {
				t.Fatalf("RequestItemResize(%d, %v) succeeded", tt.size, tt.fromRight)
			}
			if got := stateOf(c); got != before {
				t.Errorf("state = %+v, want %+v", got, before)
			}
			if got := tl.History().UndoCount(); got != entries {
				t.Errorf("UndoCount() = %d, want %d", got, entries)
			}
			mustConsistent(t, tl)
		})
	}
}

func TestResizeEndless(t *testing.T) {
	tl, track := newTimeline(t)
	id, ok := tl.InsertColorClip("red", track, 100, 2*time.Second)
	if !ok {
		t.Fatal("InsertColorClip failed")
	}
	c, _ := tl.Clip(id)
	if c.Playtime() != 50 || !c.Endless() {
		t.Fatalf("color clip playtime = %d endless = %v", c.Playtime(), c.Endless())
	}

	if !tl.RequestItemResize(id, 500, true, true) {
		t.Fatal("endless grow right failed")
	}
	if !tl.RequestItemResize(id, 550, false, true) {
		t.Fatal("endless grow left failed")
	}
	if c.Position() != 50 || c.In() != 0 || c.Playtime() != 550 {
		t.Errorf("state = %+v playtime %d", stateOf(c), c.Playtime())
	}
	mustConsistent(t, tl)

	if !tl.AdjustFade(id, 10, true) {
		t.Fatal("AdjustFade failed")
	}
	fade := c.Stack().FadeIns()[0]
	if !tl.RequestItemResize(id, 300, false, true) {
		t.Fatal("endless trim left failed")
	}
	if got := stateOf(c); got != (geometryState{300, 0, 299}) {
		t.Errorf("after left trim state = %+v", got)
	}
	if e, _ := c.Stack().Effect(fade); e.In != 0 || e.Out != 10 {
		t.Errorf("fade after left trim = [%d, %d], want [0, 10]", e.In, e.Out)
	}
	mustConsistent(t, tl)

	for tl.History().UndoCount() > 1 {
		if err := tl.Undo(); err != nil {
			t.Fatal(err)
		}
	}
	if got := stateOf(c); got != (geometryState{100, 0, 49}) {
		t.Errorf("after undo state = %+v", got)
	}
}

func TestResizeDetached(t *testing.T) {
	tl, _ := newTimeline(t)
	c := tl.CreateClip(media.NewProducer("loose.mp4", 100))
	if !c.RequestResize(40, true, nil, false) {
		t.Fatal("detached resize failed")
	}
	if c.Out() != 39 {
		t.Errorf("Out() = %d, want 39", c.Out())
	}
	if tl.History().CanUndo() {
		t.Error("resize without a sequence should not reach history")
	}
}

func TestCompositionResizeRemapsKeyframes(t *testing.T) {
	tl, track := newTimeline(t)
	id, ok := tl.InsertComposition("luma", track, 10, 101)
	if !ok {
		t.Fatal("InsertComposition failed")
	}
	c, _ := tl.Composition(id)
	c.Keyframes().Add(0, 0)
	c.Keyframes().Add(100, 1)

	if !tl.RequestItemResize(id, 51, false, true) {
		t.Fatal("RequestItemResize failed")
	}
	if c.Position() != 60 || c.Duration() != 51 || c.In() != 0 {
		t.Errorf("composition at %d duration %d in %d", c.Position(), c.Duration(), c.In())
	}
	frames := c.Keyframes().Frames()
	if len(frames) != 2 || frames[1].Frame != 50 {
		t.Errorf("keyframes = %+v, want last at 50", frames)
	}
	info, _ := tl.History().PeekUndo()
	if info.Description != "Resize composition" {
		t.Errorf("label = %q", info.Description)
	}
	mustConsistent(t, tl)

	if err := tl.Undo(); err != nil {
		t.Fatal(err)
	}
	if frames := c.Keyframes().Frames(); frames[1].Frame != 100 {
		t.Errorf("keyframes after undo = %+v", frames)
	}
	if c.Position() != 10 || c.Duration() != 101 {
		t.Errorf("after undo at %d duration %d", c.Position(), c.Duration())
	}

	if tl.RequestItemResize(id, 200, false, true) {
		t.Error("growing left past track start should fail")
	}
}

func TestResizeEvents(t *testing.T) {
	bus := event.NewBus()
	var changes []ItemChange
	bus.Subscribe(TopicItemChanged, func(e event.Event) {
		changes = append(changes, e.Payload.(ItemChange))
	})
	tl, track := newTimeline(t, WithBus(bus))
	c := insertClip(t, tl, track, 0, 100)
	changes = nil

	tl.RequestItemResize(c.ID(), 80, true, true)
	tl.RequestItemResize(c.ID(), 60, false, true)

	want := [][]Role{
		{RoleDuration, RoleOutPoint},
		{RoleDuration, RoleStart, RoleInPoint},
	}
	if len(changes) != len(want) {
		t.Fatalf("got %d changes, want %d", len(changes), len(want))
	}
	for i, ch := range changes {
		if ch.Item != c.ID() || !reflect.DeepEqual(ch.Roles, want[i]) {
			t.Errorf("change %d = %+v, want roles %v", i, ch, want[i])
		}
	}
}

func TestInsertAndRemoveItem(t *testing.T) {
	tl, track := newTimeline(t)
	a := insertClip(t, tl, track, 0, 100)
	if _, ok := tl.InsertClip(media.NewProducer("b.mp4", 10), track, 50); ok {
		t.Error("overlapping insert should fail")
	}
	if _, ok := tl.InsertClip(media.NewProducer("b.mp4", 10), ident.Next(), 0); ok {
		t.Error("insert on an unknown track should fail")
	}

	if !tl.RemoveItem(a.ID()) {
		t.Fatal("RemoveItem failed")
	}
	if a.Track().Valid() {
		t.Error("removed clip still attached")
	}
	mustConsistent(t, tl)

	if err := tl.Undo(); err != nil {
		t.Fatal(err)
	}
	tr, _ := tl.Track(track)
	if a.Track() != track || tr.Len() != 1 {
		t.Errorf("undo did not restore the clip")
	}
	mustConsistent(t, tl)
}

func TestAddEffectRespectsClipState(t *testing.T) {
	tl, track := newTimeline(t)
	c := insertClip(t, tl, track, 0, 100)

	if !tl.SetClipState(c.ID(), StateVideoOnly) {
		t.Fatal("SetClipState failed")
	}
	if _, ok := tl.AddEffect(c.ID(), "volume"); ok {
		t.Error("video-only clip accepted an audio effect")
	}
	if _, ok := tl.AddEffect(c.ID(), "brightness"); !ok {
		t.Error("video-only clip refused a video effect")
	}
	if _, ok := tl.AddEffect(c.ID(), "missing"); ok {
		t.Error("unknown asset accepted")
	}

	if !tl.AdjustFade(c.ID(), 10, false) {
		t.Fatal("AdjustFade failed")
	}
	if got := c.Stack().EffectNames(); !reflect.DeepEqual(got, []string{"Brightness", "Fade to black"}) {
		t.Errorf("EffectNames() = %v", got)
	}

	tl.Undo() // fade
	tl.Undo() // brightness
	tl.Undo() // state
	if c.State() != StateAudioVideo {
		t.Errorf("State() = %s, want audio+video", c.State())
	}
	if c.Stack().Len() != 0 {
		t.Errorf("stack kept %v", c.Stack().EffectNames())
	}
}

func TestRequestClipCut(t *testing.T) {
	tl, track := newTimeline(t)
	c := insertClip(t, tl, track, 0, 100)
	tl.AdjustFade(c.ID(), 10, true)
	tl.AdjustFade(c.ID(), 20, false)
	tl.AddEffect(c.ID(), "brightness")

	rightID, ok := tl.RequestClipCut(c.ID(), 40)
	if !ok {
		t.Fatal("RequestClipCut failed")
	}
	right, _ := tl.Clip(rightID)
	if c.Playtime() != 40 || c.Out() != 39 {
		t.Errorf("left = [%d, %d]", c.In(), c.Out())
	}
	if right.Position() != 40 || right.In() != 40 || right.Out() != 99 {
		t.Errorf("right = %+v", stateOf(right))
	}
	if len(c.Stack().FadeOuts()) != 0 || len(c.Stack().FadeIns()) != 2 {
		t.Errorf("left fades in=%d out=%d", len(c.Stack().FadeIns()), len(c.Stack().FadeOuts()))
	}
	if len(right.Stack().FadeIns()) != 0 || len(right.Stack().FadeOuts()) != 2 {
		t.Errorf("right fades in=%d out=%d", len(right.Stack().FadeIns()), len(right.Stack().FadeOuts()))
	}
	if !right.Stack().HasFilter("brightness") {
		t.Error("right part lost its effects")
	}
	mustConsistent(t, tl)

	if err := tl.Undo(); err != nil {
		t.Fatal(err)
	}
	tr, _ := tl.Track(track)
	if tr.Len() != 1 || c.Playtime() != 100 {
		t.Errorf("after undo track has %d items, clip playtime %d", tr.Len(), c.Playtime())
	}
	if len(c.Stack().FadeOuts()) != 2 {
		t.Errorf("fade outs not restored")
	}
	if got := c.Stack().FadePosition(false); got != 20 {
		t.Errorf("FadePosition(false) = %d, want 20", got)
	}
	mustConsistent(t, tl)

	items := len(tl.Items())
	for _, pos := range []int{0, 100, -3} {
		if _, ok := tl.RequestClipCut(c.ID(), pos); ok {
			t.Errorf("cut at %d should fail", pos)
		}
	}
	if got := len(tl.Items()); got != items {
		t.Errorf("rejected cuts left %d items, want %d", got, items)
	}
}

func TestRequestClipCutFailureLeavesNoClip(t *testing.T) {
	tl, track := newTimeline(t)
	c := insertClip(t, tl, track, 0, 100)
	tl.AddEffect(c.ID(), "brightness")
	items := len(tl.Items())
	entries := tl.History().UndoCount()

	// The left part cannot be shortened once its media is gone.
	c.producer.Close()
	if _, ok := tl.RequestClipCut(c.ID(), 40); ok {
		t.Fatal("cut of a closed clip succeeded")
	}
	if got := len(tl.Items()); got != items {
		t.Errorf("Items() has %d entries, want %d", got, items)
	}
	if got := tl.History().UndoCount(); got != entries {
		t.Errorf("UndoCount() = %d, want %d", got, entries)
	}
	tr, _ := tl.Track(track)
	if tr.Len() != 1 {
		t.Errorf("track has %d items, want 1", tr.Len())
	}
}

func TestEndlessClipCut(t *testing.T) {
	tl, track := newTimeline(t)
	id, _ := tl.InsertColorClip("blue", track, 0, 4*time.Second)
	rightID, ok := tl.RequestClipCut(id, 30)
	if !ok {
		t.Fatal("RequestClipCut failed")
	}
	right, _ := tl.Clip(rightID)
	if got := stateOf(right); got != (geometryState{30, 0, 69}) {
		t.Errorf("right = %+v", got)
	}
	mustConsistent(t, tl)
}

func TestStackEventsSeeUnlockedItem(t *testing.T) {
	bus := event.NewBus()
	tl, track := newTimeline(t, WithBus(bus))
	c := insertClip(t, tl, track, 0, 100)
	if !tl.AdjustFade(c.ID(), 15, true) {
		t.Fatal("AdjustFade failed")
	}

	seen := make(chan int, 4)
	if _, err := bus.Subscribe(stack.TopicFadeIn, func(event.Event) {
		seen <- c.Position()
	}); err != nil {
		t.Fatal(err)
	}

	done := make(chan bool, 1)
	go func() {
		done <- tl.RequestItemResize(c.ID(), 50, false, true)
	}()
	select {
	case ok := <-done:
		if !ok {
			t.Fatal("RequestItemResize failed")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("RequestItemResize did not return")
	}
	select {
	case pos := <-seen:
		if pos != 50 {
			t.Errorf("subscriber saw position %d, want 50", pos)
		}
	default:
		t.Fatal("no fade-in event")
	}
}

func TestRequestClipSpeed(t *testing.T) {
	tl, track := newTimeline(t)
	a := insertClip(t, tl, track, 0, 100)
	b := insertClip(t, tl, track, 150, 100)
	tl.AdjustFade(a.ID(), 10, true)
	tl.AdjustFade(a.ID(), 20, false)
	entries := tl.History().UndoCount()

	if !tl.RequestClipSpeed(a.ID(), 2) {
		t.Fatal("RequestClipSpeed(2) failed")
	}
	if got := stateOf(a); got != (geometryState{0, 0, 49}) {
		t.Errorf("state = %+v", got)
	}
	if a.Speed() != 2 || a.Length() != 50 {
		t.Errorf("speed = %g length = %d", a.Speed(), a.Length())
	}
	if v, _ := a.producer.Get("warp_speed"); v != "2" {
		t.Errorf("warp_speed = %q", v)
	}
	if in, out := a.Stack().FadePosition(true), a.Stack().FadePosition(false); in != 10 || out != 20 {
		t.Errorf("fades = %d/%d, want 10/20", in, out)
	}
	info, _ := tl.History().PeekUndo()
	if info.Description != "Change clip speed" {
		t.Errorf("label = %q", info.Description)
	}
	mustConsistent(t, tl)

	if err := tl.Undo(); err != nil {
		t.Fatal(err)
	}
	if got := stateOf(a); got != (geometryState{0, 0, 99}) || a.Speed() != 1 || a.Length() != 100 {
		t.Errorf("after undo state = %+v speed %g length %d", got, a.Speed(), a.Length())
	}
	if got := a.Stack().FadePosition(false); got != 20 {
		t.Errorf("after undo fade out = %d, want 20", got)
	}
	mustConsistent(t, tl)

	// Half speed doubles the playtime into b.
	if tl.RequestClipSpeed(a.ID(), 0.5) {
		t.Error("slowdown overlapping the next clip succeeded")
	}
	if got := stateOf(a); got != (geometryState{0, 0, 99}) || a.Speed() != 1 {
		t.Errorf("after rejected slowdown state = %+v speed %g", got, a.Speed())
	}
	if got := tl.History().UndoCount(); got != entries {
		t.Errorf("UndoCount() = %d, want %d", got, entries)
	}
	mustConsistent(t, tl)

	tests := []struct {
		name  string
		id    ident.ID
		speed float64
		want  bool
	}{
		{"same speed", a.ID(), 1, true},
		{"zero", a.ID(), 0, false},
		{"negative", a.ID(), -2, false},
		{"unknown item", ident.Invalid, 2, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tl.RequestClipSpeed(tt.id, tt.speed); got != tt.want {
				t.Errorf("RequestClipSpeed(%g) = %v, want %v", tt.speed, got, tt.want)
			}
			if got := tl.History().UndoCount(); got != entries {
				t.Errorf("UndoCount() = %d, want %d", got, entries)
			}
		})
	}

	if !tl.RequestItemResize(b.ID(), 80, false, true) {
		t.Fatal("trim of b failed")
	}
	if !tl.RequestClipSpeed(b.ID(), 2) {
		t.Fatal("RequestClipSpeed on trimmed clip failed")
	}
	if got := stateOf(b); got != (geometryState{170, 10, 49}) {
		t.Errorf("trimmed clip state = %+v", got)
	}
	rightID, ok := tl.RequestClipCut(b.ID(), 190)
	if !ok {
		t.Fatal("cut of retimed clip failed")
	}
	if right, _ := tl.Clip(rightID); right.Speed() != 2 {
		t.Errorf("right part speed = %g, want 2", right.Speed())
	}
	mustConsistent(t, tl)
}

func TestRequestClipSpeedEndless(t *testing.T) {
	tl, track := newTimeline(t)
	id, _ := tl.InsertColorClip("red", track, 0, time.Second)
	if tl.RequestClipSpeed(id, 2) {
		t.Error("speed change of an endless clip succeeded")
	}
}

func TestCompositionATrack(t *testing.T) {
	tl, _ := newTimeline(t)
	v2 := tl.AddTrack(VideoTrack, "V2")
	id, ok := tl.InsertComposition("composite", v2, 0, 50)
	if !ok {
		t.Fatal("InsertComposition failed")
	}
	c, _ := tl.Composition(id)
	if c.ATrack() != -1 || c.ForcedTrack() != -1 {
		t.Fatalf("new composition a-track = %d forced %d", c.ATrack(), c.ForcedTrack())
	}

	for _, bad := range []int{1, 2, -2} {
		if tl.SetCompositionATrack(id, bad) {
			t.Errorf("SetCompositionATrack(%d) succeeded", bad)
		}
	}
	if !tl.SetCompositionATrack(id, 0) {
		t.Fatal("SetCompositionATrack(0) failed")
	}
	if c.ATrack() != 0 {
		t.Errorf("ATrack() = %d, want 0", c.ATrack())
	}
	if v, _ := c.producer.Get("a_track"); v != "0" {
		t.Errorf("a_track property = %q", v)
	}
	if c.ForcedTrack() != -1 {
		t.Errorf("unforced ForcedTrack() = %d", c.ForcedTrack())
	}

	if !tl.SetCompositionForceTrack(id, true) {
		t.Fatal("SetCompositionForceTrack failed")
	}
	if c.ForcedTrack() != 0 {
		t.Errorf("ForcedTrack() = %d, want 0", c.ForcedTrack())
	}
	if v, _ := c.producer.Get("force_track"); v != "1" {
		t.Errorf("force_track property = %q", v)
	}
	info, _ := tl.History().PeekUndo()
	if info.Description != "Change composition track" {
		t.Errorf("label = %q", info.Description)
	}

	if err := tl.Undo(); err != nil {
		t.Fatal(err)
	}
	if c.Forced() || c.ForcedTrack() != -1 {
		t.Errorf("after undo forced = %v", c.Forced())
	}
	if v, _ := c.producer.Get("force_track"); v != "0" {
		t.Errorf("after undo force_track = %q", v)
	}
	if err := tl.Undo(); err != nil {
		t.Fatal(err)
	}
	if c.ATrack() != -1 {
		t.Errorf("after undo ATrack() = %d", c.ATrack())
	}
	mustConsistent(t, tl)
}

func TestUndoSymmetry(t *testing.T) {
	tl, track := newTimeline(t)
	a := insertClip(t, tl, track, 0, 100)
	b := insertClip(t, tl, track, 150, 100)
	baseline := tl.History().UndoCount()
	wantA, wantB := stateOf(a), stateOf(b)

	tl.AdjustFade(a.ID(), 20, false)
	tl.RequestItemResize(a.ID(), 60, true, true)
	tl.AddEffect(b.ID(), "volume")
	tl.RequestItemResize(b.ID(), 30, false, true)
	tl.RequestItemResize(a.ID(), 100, true, true)
	mustConsistent(t, tl)

	for tl.History().UndoCount() > baseline {
		if err := tl.Undo(); err != nil {
			t.Fatalf("Undo() = %v", err)
		}
		mustConsistent(t, tl)
	}
	if got := stateOf(a); got != wantA {
		t.Errorf("a = %+v, want %+v", got, wantA)
	}
	if got := stateOf(b); got != wantB {
		t.Errorf("b = %+v, want %+v", got, wantB)
	}
	if a.Stack().Len() != 0 || b.Stack().Len() != 0 {
		t.Error("stacks not emptied by undo")
	}
}

func TestFadeRoundTripThroughResize(t *testing.T) {
	tl, track := newTimeline(t)
	c := insertClip(t, tl, track, 0, 100)
	tl.AdjustFade(c.ID(), 20, false)
	fade := c.Stack().FadeOuts()[0]

	tl.RequestItemResize(c.ID(), 10, true, true)
	if got := c.Stack().FadePosition(false); got != 10 {
		t.Errorf("shrunk fade = %d, want 10", got)
	}
	tl.RequestItemResize(c.ID(), 100, true, true)
	if e, _ := c.Stack().Effect(fade); e.In != 80 || e.Out != 100 {
		t.Errorf("restored fade = [%d, %d], want [80, 100]", e.In, e.Out)
	}
}

func TestCheckConsistencyDetectsDrift(t *testing.T) {
	tl, track := newTimeline(t)
	c := insertClip(t, tl, track, 0, 100)
	mustConsistent(t, tl)

	// Change the producer behind the timeline's back.
	if err := c.producer.SetInOut(0, 49); err != nil {
		t.Fatal(err)
	}
	if err := tl.CheckConsistency(); err == nil {
		t.Error("CheckConsistency() missed a length drift")
	}
}
