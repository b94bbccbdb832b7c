package clipboard

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/ivlev/marionette/internal/selection"
	"github.com/ivlev/marionette/internal/timeline"
)

func TestCopyPasteRoundTrip(t *testing.T) {
	cfg := timeline.Config{TotalFrames: 100, FPS: 10}
	set := timeline.NewKeyframeSet(
		timeline.Keyframe{FrameIndex: 5, Values: timeline.Pose{"m": 1}},
		timeline.Keyframe{FrameIndex: 8, Values: timeline.Pose{"m": 2}},
		timeline.Keyframe{FrameIndex: 40, Values: timeline.Pose{"m": 3}},
	)

	var sel selection.Model
	sel.Begin(4)
	sel.Update(9, set.Indices())

	payload, err := Copy(set, &sel)
	if err != nil {
		t.Fatalf("Copy failed: %v", err)
	}
	if len(payload) != 2 || payload[0].FrameIndex != 0 || payload[1].FrameIndex != 3 {
		t.Fatalf("unexpected payload %+v", payload)
	}

	data, err := Encode(payload)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if err := Paste(decoded, 20, set, cfg); err != nil {
		t.Fatalf("Paste failed: %v", err)
	}

	for src, dst := range map[int]int{5: 20, 8: 23} {
		a, _ := set.Find(src)
		b, ok := set.Find(dst)
		if !ok {
			t.Fatalf("Expected keyframe at %d", dst)
		}
		if !reflect.DeepEqual(a.Values, b.Values) {
			t.Errorf("values at %d = %v, want %v", dst, b.Values, a.Values)
		}
	}
}

func TestCopyCurrentOnly(t *testing.T) {
	set := timeline.NewKeyframeSet(timeline.Keyframe{FrameIndex: 7, Values: timeline.Pose{"m": 9}})

	var sel selection.Model
	sel.Update(7, set.Indices())

	payload, err := Copy(set, &sel)
	if err != nil {
		t.Fatal(err)
	}
	want := Payload{{FrameIndex: 0, Values: timeline.Pose{"m": 9}}}
	if !reflect.DeepEqual(payload, want) {
		t.Errorf("got %+v, want %+v", payload, want)
	}
}

func TestCopyEmptySelection(t *testing.T) {
	set := timeline.NewKeyframeSet(timeline.Keyframe{FrameIndex: 7, Values: timeline.Pose{"m": 9}})

	var sel selection.Model
	sel.Update(3, set.Indices())

	if _, err := Copy(set, &sel); !errors.Is(err, timeline.ErrEmptySelection) {
		t.Errorf("Expected ErrEmptySelection, got %v", err)
	}
}

func TestPasteOutOfRangeLeavesSetUnchanged(t *testing.T) {
	cfg := timeline.Config{TotalFrames: 10, FPS: 10}
	set := timeline.NewKeyframeSet(timeline.Keyframe{FrameIndex: 1, Values: timeline.Pose{"m": 1}})
	payload := Payload{
		{FrameIndex: 0, Values: timeline.Pose{"m": 5}},
		{FrameIndex: 4, Values: timeline.Pose{"m": 6}},
	}

	err := Paste(payload, 8, set, cfg)
	if !errors.Is(err, timeline.ErrOutOfRangeFrame) {
		t.Fatalf("Expected ErrOutOfRangeFrame, got %v", err)
	}
	if !reflect.DeepEqual(set.Indices(), []int{1}) {
		t.Errorf("set changed: %v", set.Indices())
	}
}

func TestDecodeMalformed(t *testing.T) {
	tests := []string{
		"",
		"not json",
		`{"frameIndex": 0}`,
		`[{"values": {"m": 1}}]`,
		`[{"frameIndex": 0}]`,
		`[{"frameIndex": -2, "values": {"m": 1}}]`,
		`[{"frameIndex": 0, "values": {"m": "x"}}]`,
	}

	for _, data := range tests {
		t.Run(data, func(t *testing.T) {
			if _, err := Decode(data); !errors.Is(err, ErrClipboardFormat) {
				t.Errorf("Decode(%q) = %v, want ErrClipboardFormat", data, err)
			}
		})
	}
}

func TestMemoryTransport(t *testing.T) {
	var tr MemoryTransport
	ctx := context.Background()
	if err := tr.Write(ctx, "[]"); err != nil {
		t.Fatal(err)
	}
	got, err := tr.Read(ctx)
	if err != nil || got != "[]" {
		t.Errorf("Read = %q, %v", got, err)
	}
}
