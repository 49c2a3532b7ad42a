// Package timeline holds the tracks and items of an edit and implements the
// resize protocol shared by clips and compositions.
//
// Every mutation is built as a history.Sequence of edits addressed by id:
// the track's structural edit first, then the item's own geometry, then any
// cascading effect stack edits such as fades following the new boundaries.
// A rejected operation leaves tracks, items and stacks untouched.
//
//	tl := timeline.New(media.DefaultProfile(), asset.Builtin())
//	track := tl.AddTrack(timeline.VideoTrack, "V1")
//	clip, _ := tl.InsertClip(media.NewProducer("a.mp4", 100), track, 0)
//	tl.RequestItemResize(clip, 50, false, true)
//	tl.Undo()
package timeline
