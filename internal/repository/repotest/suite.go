// Package repotest holds the behavioural suite every repository backend
// must pass.
package repotest

import (
	"context"
	"reflect"
	"testing"

	"subway/internal/domain"
	"subway/internal/repository"
)

// Factory returns a fresh, empty repository for one subtest
type Factory func(t *testing.T) repository.Repository

// Run executes the suite against the backend built by newRepo
func Run(t *testing.T, newRepo Factory) {
	t.Run("stations", func(t *testing.T) { testStations(t, newRepo(t)) })
	t.Run("line lifecycle", func(t *testing.T) { testLineLifecycle(t, newRepo(t)) })
	t.Run("line uniqueness", func(t *testing.T) { testLineUniqueness(t, newRepo(t)) })
	t.Run("save sections", func(t *testing.T) { testSaveSections(t, newRepo(t)) })
	t.Run("stale save conflicts", func(t *testing.T) { testStaleSave(t, newRepo(t)) })
	t.Run("station in use", func(t *testing.T) { testStationInUse(t, newRepo(t)) })
	t.Run("delete station in use", func(t *testing.T) { testDeleteStationInUse(t, newRepo(t)) })
	t.Run("delete line cascades", func(t *testing.T) { testDeleteLine(t, newRepo(t)) })
}

// SeedStations creates stations with the given names and returns their ids
func SeedStations(t *testing.T, repo repository.Repository, names ...string) []int64 {
	t.Helper()
	ids := make([]int64, 0, len(names))
	for _, name := range names {
		station, err := domain.NewStation(name)
		if err != nil {
			t.Fatalf("NewStation(%q) error: %v", name, err)
		}
		if err := repo.CreateStation(context.Background(), station); err != nil {
			t.Fatalf("CreateStation(%q) error: %v", name, err)
		}
		ids = append(ids, station.ID)
	}
	return ids
}

func mustNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func newLine(t *testing.T, repo repository.Repository, name, color string, up, down int64, distance int) *domain.Line {
	t.Helper()
	line, err := domain.NewLine(name, color, domain.MustSection(up, down, distance))
	mustNoError(t, err)
	mustNoError(t, repo.CreateLine(context.Background(), line))
	return line
}

func testStations(t *testing.T, repo repository.Repository) {
	ctx := context.Background()
	ids := SeedStations(t, repo, "Gangnam", "Yeoksam")

	if ids[0] == 0 || ids[0] == ids[1] {
		t.Fatalf("expected distinct non-zero ids, got %v", ids)
	}

	got, err := repo.GetStation(ctx, ids[1])
	mustNoError(t, err)
	if got == nil || got.Name != "Yeoksam" {
		t.Fatalf("GetStation() = %+v", got)
	}

	byName, err := repo.GetStationByName(ctx, "Gangnam")
	mustNoError(t, err)
	if byName == nil || byName.ID != ids[0] {
		t.Fatalf("GetStationByName() = %+v", byName)
	}

	missing, err := repo.GetStation(ctx, 9999)
	mustNoError(t, err)
	if missing != nil {
		t.Fatalf("expected nil for missing station, got %+v", missing)
	}

	dup, _ := domain.NewStation("Gangnam")
	if err := repo.CreateStation(ctx, dup); !domain.IsKind(err, domain.KindValidation) {
		t.Fatalf("expected validation error for duplicate name, got %v", err)
	}

	all, err := repo.ListStations(ctx)
	mustNoError(t, err)
	if len(all) != 2 || all[0].ID != ids[0] {
		t.Fatalf("ListStations() = %+v", all)
	}

	mustNoError(t, repo.DeleteStation(ctx, ids[0]))
	if err := repo.DeleteStation(ctx, ids[0]); !domain.IsKind(err, domain.KindNotFound) {
		t.Fatalf("expected not found deleting twice, got %v", err)
	}
}

func testLineLifecycle(t *testing.T, repo repository.Repository) {
	ctx := context.Background()
	ids := SeedStations(t, repo, "A", "B")

	line := newLine(t, repo, "Line 2", "green", ids[0], ids[1], 10)
	if line.ID == 0 || line.Version != 1 {
		t.Fatalf("CreateLine() left id=%d version=%d", line.ID, line.Version)
	}

	got, err := repo.GetLine(ctx, line.ID)
	mustNoError(t, err)
	if got == nil || got.Name != "Line 2" || got.Color != "green" || got.Version != 1 {
		t.Fatalf("GetLine() = %+v", got)
	}
	if !reflect.DeepEqual(got.Sections(), line.Sections()) {
		t.Fatalf("GetLine() sections = %v, want %v", got.Sections(), line.Sections())
	}

	mustNoError(t, got.Rename("Line 9", "gold"))
	mustNoError(t, repo.UpdateLineInfo(ctx, got))

	byName, err := repo.FindLineByName(ctx, "Line 9")
	mustNoError(t, err)
	if byName == nil || byName.ID != line.ID {
		t.Fatalf("FindLineByName() = %+v", byName)
	}
	byColor, err := repo.FindLineByColor(ctx, "gold")
	mustNoError(t, err)
	if byColor == nil || byColor.ID != line.ID {
		t.Fatalf("FindLineByColor() = %+v", byColor)
	}
	none, err := repo.FindLineByName(ctx, "Line 2")
	mustNoError(t, err)
	if none != nil {
		t.Fatalf("old name should no longer match, got %+v", none)
	}

	missing, err := repo.GetLine(ctx, 9999)
	mustNoError(t, err)
	if missing != nil {
		t.Fatalf("expected nil for missing line, got %+v", missing)
	}
}

func testLineUniqueness(t *testing.T, repo repository.Repository) {
	ctx := context.Background()
	ids := SeedStations(t, repo, "A", "B")
	newLine(t, repo, "Line 1", "red", ids[0], ids[1], 5)
	second := newLine(t, repo, "Line 2", "blue", ids[0], ids[1], 5)

	sameName, _ := domain.NewLine("Line 1", "pink", domain.MustSection(ids[0], ids[1], 5))
	if err := repo.CreateLine(ctx, sameName); !domain.IsKind(err, domain.KindValidation) {
		t.Fatalf("expected validation error for duplicate name, got %v", err)
	}

	mustNoError(t, second.Rename("Line 2", "red"))
	if err := repo.UpdateLineInfo(ctx, second); !domain.IsKind(err, domain.KindValidation) {
		t.Fatalf("expected validation error for duplicate color, got %v", err)
	}

	lines, err := repo.ListLines(ctx)
	mustNoError(t, err)
	if len(lines) != 2 || lines[0].Name != "Line 1" {
		t.Fatalf("ListLines() returned %d lines", len(lines))
	}
}

func testSaveSections(t *testing.T, repo repository.Repository) {
	ctx := context.Background()
	ids := SeedStations(t, repo, "A", "B", "C", "M")
	line := newLine(t, repo, "Line 2", "green", ids[0], ids[1], 10)

	mustNoError(t, line.AddSection(domain.MustSection(ids[1], ids[2], 4)))
	mustNoError(t, line.AddSection(domain.MustSection(ids[0], ids[3], 4)))
	mustNoError(t, repo.SaveSections(ctx, line))
	if line.Version != 2 {
		t.Fatalf("SaveSections() left version %d, want 2", line.Version)
	}

	got, err := repo.GetLine(ctx, line.ID)
	mustNoError(t, err)
	order, err := got.StationIDs()
	mustNoError(t, err)
	want := []int64{ids[0], ids[3], ids[1], ids[2]}
	if !reflect.DeepEqual(order, want) {
		t.Fatalf("stored order = %v, want %v", order, want)
	}
	if got.Topology().TotalDistance() != 14 {
		t.Fatalf("stored total distance = %d, want 14", got.Topology().TotalDistance())
	}
	if got.Version != 2 {
		t.Fatalf("stored version = %d, want 2", got.Version)
	}

	ghost, _ := domain.RestoreLine(9999, "Ghost", "none", 1, nil)
	if err := repo.SaveSections(ctx, ghost); !domain.IsKind(err, domain.KindNotFound) {
		t.Fatalf("expected not found saving unknown line, got %v", err)
	}
}

func testStaleSave(t *testing.T, repo repository.Repository) {
	ctx := context.Background()
	ids := SeedStations(t, repo, "A", "B", "C", "D")
	line := newLine(t, repo, "Line 2", "green", ids[0], ids[1], 10)

	first, err := repo.GetLine(ctx, line.ID)
	mustNoError(t, err)
	second, err := repo.GetLine(ctx, line.ID)
	mustNoError(t, err)

	mustNoError(t, first.AddSection(domain.MustSection(ids[1], ids[2], 3)))
	mustNoError(t, repo.SaveSections(ctx, first))

	mustNoError(t, second.AddSection(domain.MustSection(ids[1], ids[3], 3)))
	if err := repo.SaveSections(ctx, second); !domain.IsKind(err, domain.KindConflict) {
		t.Fatalf("expected conflict for stale write, got %v", err)
	}

	stored, err := repo.GetLine(ctx, line.ID)
	mustNoError(t, err)
	order, _ := stored.StationIDs()
	if !reflect.DeepEqual(order, []int64{ids[0], ids[1], ids[2]}) {
		t.Fatalf("stale write leaked into storage: %v", order)
	}
}

func testStationInUse(t *testing.T, repo repository.Repository) {
	ctx := context.Background()
	ids := SeedStations(t, repo, "A", "B", "C")
	newLine(t, repo, "Line 2", "green", ids[0], ids[1], 10)

	inUse, err := repo.StationInUse(ctx, ids[1])
	mustNoError(t, err)
	if !inUse {
		t.Error("expected station B to be in use")
	}
	inUse, err = repo.StationInUse(ctx, ids[2])
	mustNoError(t, err)
	if inUse {
		t.Error("expected station C to be unused")
	}
}

func testDeleteStationInUse(t *testing.T, repo repository.Repository) {
	ctx := context.Background()
	ids := SeedStations(t, repo, "A", "B", "C")
	line := newLine(t, repo, "Line 2", "green", ids[0], ids[1], 10)

	if err := repo.DeleteStation(ctx, ids[1]); !domain.IsKind(err, domain.KindValidation) {
		t.Fatalf("expected validation error deleting a station on a line, got %v", err)
	}
	station, err := repo.GetStation(ctx, ids[1])
	mustNoError(t, err)
	if station == nil {
		t.Fatal("rejected delete removed the station")
	}

	mustNoError(t, repo.DeleteStation(ctx, ids[2]))

	// Once the line is gone the station is free
	mustNoError(t, repo.DeleteLine(ctx, line.ID))
	mustNoError(t, repo.DeleteStation(ctx, ids[1]))
}

func testDeleteLine(t *testing.T, repo repository.Repository) {
	ctx := context.Background()
	ids := SeedStations(t, repo, "A", "B")
	line := newLine(t, repo, "Line 2", "green", ids[0], ids[1], 10)

	mustNoError(t, repo.DeleteLine(ctx, line.ID))

	got, err := repo.GetLine(ctx, line.ID)
	mustNoError(t, err)
	if got != nil {
		t.Fatalf("expected line to be gone, got %+v", got)
	}
	inUse, err := repo.StationInUse(ctx, ids[0])
	mustNoError(t, err)
	if inUse {
		t.Error("sections should be deleted with their line")
	}
	if err := repo.DeleteLine(ctx, line.ID); !domain.IsKind(err, domain.KindNotFound) {
		t.Fatalf("expected not found deleting twice, got %v", err)
	}
}
