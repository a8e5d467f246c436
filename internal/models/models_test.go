package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/desertthunder/likedb/internal/shared"
)

func TestRawID(t *testing.T) {
	tc := []struct {
		name      string
		input     string
		want      int64
		wantValid bool
		wantErr   bool
	}{
		{"number", `123`, 123, true, false},
		{"numeric string", `"456"`, 456, true, false},
		{"composite string", `"789:1011"`, 789, true, false},
		{"float without fraction", `12.0`, 12, true, false},
		{"null", `null`, 0, false, false},
		{"empty string", `""`, 0, false, false},
		{"garbage string", `"abc"`, 0, false, false},
		{"zero", `0`, 0, false, false},
		{"object", `{"id":1}`, 0, false, true},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			var id RawID
			err := json.Unmarshal([]byte(tt.input), &id)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal() error = %v, wantErr %v", err, tt.wantErr)
			}
			if id.Valid != tt.wantValid || id.Value != tt.want {
				t.Errorf("got %+v, want value %d valid %v", id, tt.want, tt.wantValid)
			}
		})
	}

	t.Run("missing field", func(t *testing.T) {
		var track RawTrack
		if err := json.Unmarshal([]byte(`{"title":"x"}`), &track); err != nil {
			t.Fatalf("Unmarshal() error = %v", err)
		}
		if !errors.Is(track.Validate(), shared.ErrMissingIdentity) {
			t.Errorf("expected ErrMissingIdentity for track without id")
		}
	})
}

func TestRawTrack(t *testing.T) {
	payload := `{
		"id": "42",
		"title": "Song",
		"durationMs": 215000,
		"contentWarning": "explicit",
		"artists": [{"id": 7, "name": "Band", "genres": ["Rock"]}],
		"albums": [{"id": 9, "title": "LP", "genre": null, "releaseDate": "2019-03-01T00:00:00+03:00", "year": 2019}]
	}`

	var track RawTrack
	if err := json.Unmarshal([]byte(payload), &track); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if err := track.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
	if track.ID.Value != 42 || *track.Title != "Song" || *track.DurationMs != 215000 {
		t.Errorf("unexpected track %+v", track)
	}
	if !track.IsExplicit() {
		t.Error("content warning should mark the track explicit")
	}
	if track.Albums[0].Genre != nil || *track.Albums[0].Year != 2019 {
		t.Errorf("unexpected album %+v", track.Albums[0])
	}

	track.ContentWarning = ""
	if track.IsExplicit() {
		t.Error("track without warning or flag should not be explicit")
	}
	track.Explicit = true
	if !track.IsExplicit() {
		t.Error("explicit flag should mark the track explicit")
	}
}

func TestRawLike(t *testing.T) {
	tc := []struct {
		name    string
		like    RawLike
		wantErr error
	}{
		{"valid", RawLike{ID: NewRawID(1), Timestamp: "2023-05-01T10:00:00+00:00"}, nil},
		{"missing id", RawLike{Timestamp: "2023-05-01T10:00:00+00:00"}, shared.ErrMissingIdentity},
		{"missing timestamp", RawLike{ID: NewRawID(1)}, shared.ErrInvalidTimestamp},
		{"bad timestamp", RawLike{ID: NewRawID(1), Timestamp: "yesterday"}, shared.ErrInvalidTimestamp},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			like, err := tt.like.Like()
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Like() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Like() error = %v", err)
			}
			if like.TrackID != 1 || like.LikedAt != tt.like.Timestamp {
				t.Errorf("unexpected like %+v", like)
			}
		})
	}
}

func TestSnapshotJSON(t *testing.T) {
	t.Run("ranking pairs", func(t *testing.T) {
		data, err := json.Marshal([]Ranking{{Label: "rock", Count: 3}})
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		if string(data) != `[["rock",3]]` {
			t.Errorf("got %s", data)
		}

		var back []Ranking
		if err := json.Unmarshal(data, &back); err != nil {
			t.Fatalf("Unmarshal() error = %v", err)
		}
		if back[0] != (Ranking{Label: "rock", Count: 3}) {
			t.Errorf("got %+v", back[0])
		}

		if err := json.Unmarshal([]byte(`[["rock"]]`), &back); err == nil {
			t.Error("expected error for a one-element pair")
		}
	})

	t.Run("null period", func(t *testing.T) {
		data, err := json.Marshal(Summary{})
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		want := `{"n_likes":0,"n_tracks":0,"n_artists":0,"n_genres":0,"period":null}`
		if string(data) != want {
			t.Errorf("got %s, want %s", data, want)
		}
	})

	t.Run("period pair", func(t *testing.T) {
		data, err := json.Marshal(Summary{Period: &Period{"a", "b"}})
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		var back Summary
		if err := json.Unmarshal(data, &back); err != nil {
			t.Fatalf("Unmarshal() error = %v", err)
		}
		if back.Period == nil || *back.Period != (Period{"a", "b"}) {
			t.Errorf("got %+v", back.Period)
		}
	})
}

func TestRun(t *testing.T) {
	run := NewRun(RunKindLoad, "./dataset/data.json")

	if run.Status() != RunStatusRunning || run.StartedAt() == nil {
		t.Fatalf("new run should be running with a start time")
	}
	if err := run.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	run.SetRecords(10, 9, 1)
	run.Finish(errors.New("boom"))
	if run.Status() != RunStatusFailed || run.ErrorMessage() != "boom" || run.CompletedAt() == nil {
		t.Errorf("unexpected run after failure: status %s msg %s", run.Status(), run.ErrorMessage())
	}
	if run.Duration() < 0 {
		t.Error("duration should not be negative")
	}

	t.Run("invalid", func(t *testing.T) {
		tests := []struct {
			name string
			run  *Run
		}{
			{"kind", NewRun("sync", "x")},
			{"path", NewRun(RunKindExtract, "")},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if !errors.Is(tt.run.Validate(), shared.ErrInvalidInput) {
					t.Error("expected ErrInvalidInput")
				}
			})
		}

		bad := NewRun(RunKindExtract, "x")
		bad.SetRecords(-1, 0, 0)
		if !errors.Is(bad.Validate(), shared.ErrInvalidInput) {
			t.Error("expected ErrInvalidInput for negative counts")
		}
	})
}
