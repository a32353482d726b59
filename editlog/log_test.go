package editlog

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/brunoga/confedit"
	"github.com/brunoga/confedit/model"
)

func baseSnapshot() *model.Snapshot {
	return &model.Snapshot{
		Version: "01HBASE",
		Document: &model.Document{
			ID:   "inst-1",
			Name: "Instance",
			Nodes: []model.Node{{
				Name: "N1",
				Processes: []model.Process{{
					ID:   "P1",
					Name: "Server",
					Start: model.Command{Parameters: []model.Parameter{
						{ID: "port", Value: model.Literal("8080"), PreRendered: []string{"--port=8080"}},
					}},
				}},
				ControlGroups: []model.ControlGroup{
					{Name: model.DefaultControlGroup, ProcessOrder: []string{"P1"}},
				},
			}},
		},
	}
}

func newLog(t *testing.T, opts ...Option) *Log {
	t.Helper()
	l := New(opts...)
	if err := l.Reset(baseSnapshot()); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	return l
}

func setPort(value string) func(*model.Snapshot) {
	return func(s *model.Snapshot) {
		p := s.Node("N1").Process("P1").Parameter("port")
		p.Value = model.Literal(value)
		p.PreRendered = []string{"--port=" + value}
	}
}

func addProcess(id string) func(*model.Snapshot) {
	return func(s *model.Snapshot) {
		n := s.Node("N1")
		n.Processes = append(n.Processes, model.Process{ID: id, Name: id})
		n.ControlGroups[0].ProcessOrder = append(n.ControlGroups[0].ProcessOrder, id)
	}
}

func mustEdit(t *testing.T, l *Log, description string, fn func(*model.Snapshot)) {
	t.Helper()
	if err := l.Mutate(fn); err != nil {
		t.Fatalf("Mutate(%s) failed: %v", description, err)
	}
	if _, err := l.Conceal(description, nil); err != nil {
		t.Fatalf("Conceal(%s) failed: %v", description, err)
	}
}

func TestLog_NoBase(t *testing.T) {
	l := New()

	if _, err := l.Conceal("x", nil); !errors.Is(err, ErrNoBase) {
		t.Errorf("Conceal: got %v, want ErrNoBase", err)
	}
	if err := l.Mutate(func(*model.Snapshot) {}); !errors.Is(err, ErrNoBase) {
		t.Errorf("Mutate: got %v, want ErrNoBase", err)
	}
	if err := l.Undo(); !errors.Is(err, ErrNoBase) {
		t.Errorf("Undo: got %v, want ErrNoBase", err)
	}
	if err := l.Redo(); !errors.Is(err, ErrNoBase) {
		t.Errorf("Redo: got %v, want ErrNoBase", err)
	}
	if err := l.Discard(); !errors.Is(err, ErrNoBase) {
		t.Errorf("Discard: got %v, want ErrNoBase", err)
	}
	if _, err := l.Rebuild(); !errors.Is(err, ErrNoBase) {
		t.Errorf("Rebuild: got %v, want ErrNoBase", err)
	}
	if err := l.Reset(nil); !errors.Is(err, ErrNoBase) {
		t.Errorf("Reset(nil): got %v, want ErrNoBase", err)
	}
	if l.IsDirty() || l.IsSaveable() || l.HasBase() {
		t.Errorf("empty log reports dirty, saveable or based")
	}
}

func TestLog_EmptyStacks(t *testing.T) {
	l := newLog(t)

	if err := l.Undo(); !errors.Is(err, ErrNothingToUndo) {
		t.Errorf("Undo: got %v, want ErrNothingToUndo", err)
	}
	if err := l.Redo(); !errors.Is(err, ErrNothingToRedo) {
		t.Errorf("Redo: got %v, want ErrNothingToRedo", err)
	}
}

func TestLog_ReplayDeterminism(t *testing.T) {
	l := newLog(t)

	var incremental []*model.Snapshot
	for i := 0; i < 5; i++ {
		mustEdit(t, l, fmt.Sprintf("edit %d", i), setPort(fmt.Sprintf("%d", 9000+i)))
		if i%2 == 0 {
			mustEdit(t, l, fmt.Sprintf("add %d", i), addProcess(fmt.Sprintf("X%d", i)))
		}
		incremental = append(incremental, l.State())
	}

	rebuilt, err := l.Rebuild()
	if err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}
	if diff := cmp.Diff(incremental[len(incremental)-1], rebuilt); diff != "" {
		t.Errorf("replay differs from incremental state (-want +got):\n%s", diff)
	}

	again, err := l.Rebuild()
	if err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}
	if diff := cmp.Diff(rebuilt, again); diff != "" {
		t.Errorf("Rebuild is not idempotent (-first +second):\n%s", diff)
	}
	if rebuilt == again || rebuilt.Document == again.Document {
		t.Errorf("Rebuild results share structure")
	}
}

func TestLog_UndoRedoInverse(t *testing.T) {
	l := newLog(t)

	const k = 4
	for i := 0; i < k; i++ {
		mustEdit(t, l, fmt.Sprintf("edit %d", i), setPort(fmt.Sprintf("%d", 7000+i)))
	}
	mustEdit(t, l, "add", addProcess("P9"))
	want := l.State()

	for i := 0; i < k+1; i++ {
		if err := l.Undo(); err != nil {
			t.Fatalf("Undo %d failed: %v", i, err)
		}
	}
	if diff := cmp.Diff(baseSnapshot(), l.State()); diff != "" {
		t.Errorf("undoing everything should restore base (-want +got):\n%s", diff)
	}

	for i := 0; i < k+1; i++ {
		if err := l.Redo(); err != nil {
			t.Fatalf("Redo %d failed: %v", i, err)
		}
	}
	if diff := cmp.Diff(want, l.State()); diff != "" {
		t.Errorf("redo did not restore state (-want +got):\n%s", diff)
	}
}

func TestLog_ConcealClearsRedo(t *testing.T) {
	l := newLog(t)
	mustEdit(t, l, "one", setPort("1"))
	mustEdit(t, l, "two", setPort("2"))

	if err := l.Undo(); err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	if l.RedoLen() != 1 {
		t.Fatalf("RedoLen = %d, want 1", l.RedoLen())
	}

	mustEdit(t, l, "three", setPort("3"))
	if l.RedoLen() != 0 {
		t.Errorf("RedoLen after conceal = %d, want 0", l.RedoLen())
	}
	if got := l.History(); !cmp.Equal(got, []string{"one", "three"}) {
		t.Errorf("History = %v", got)
	}
}

// brokenEdit fails every replay.
type brokenEdit struct{}

func (brokenEdit) Description() string { return "broken" }

func (brokenEdit) Apply(*model.Snapshot) (*model.Snapshot, error) {
	return nil, fmt.Errorf("cannot apply")
}

func TestLog_FailedConcealKeepsStacks(t *testing.T) {
	l := newLog(t)
	mustEdit(t, l, "one", setPort("1"))
	mustEdit(t, l, "two", setPort("2"))
	if err := l.Undo(); err != nil {
		t.Fatalf("Undo failed: %v", err)
	}

	broken := func(string, *model.Snapshot, *model.Snapshot) (Edit, error) { return brokenEdit{}, nil }
	if _, err := l.Conceal("broken", broken); err == nil {
		t.Fatalf("Conceal of a failing edit succeeded")
	}
	if l.UndoLen() != 1 || l.RedoLen() != 1 {
		t.Fatalf("stacks after failed conceal: undo %d, redo %d, want 1 and 1", l.UndoLen(), l.RedoLen())
	}

	if err := l.Redo(); err != nil {
		t.Fatalf("Redo failed: %v", err)
	}
	if got := l.State().Node("N1").Process("P1").Parameter("port").Value.Literal; got != "2" {
		t.Errorf("port after redo = %s, want 2", got)
	}
}

func TestLog_FactoryRefusesUnconcealedChanges(t *testing.T) {
	l := newLog(t)
	if err := l.Mutate(setPort("9090")); err != nil {
		t.Fatalf("Mutate failed: %v", err)
	}

	_, err := l.Conceal("move", Move("N1", "P1", model.DefaultControlGroup, 0))
	if !errors.Is(err, ErrUnconcealed) {
		t.Fatalf("Conceal: got %v, want ErrUnconcealed", err)
	}
	if l.UndoLen() != 0 {
		t.Errorf("UndoLen = %d, want 0", l.UndoLen())
	}
	if got := l.State().Node("N1").Process("P1").Parameter("port").Value.Literal; got != "9090" {
		t.Errorf("pending change dropped: port = %s", got)
	}

	if err := l.Discard(); err != nil {
		t.Fatalf("Discard failed: %v", err)
	}
	if _, err := l.Conceal("move", Move("N1", "P1", model.DefaultControlGroup, 0)); err != nil {
		t.Errorf("Conceal after Discard: %v", err)
	}
}

func TestLog_DirtySaveableIndependence(t *testing.T) {
	l := newLog(t)

	if l.IsDirty() || l.IsSaveable() {
		t.Fatalf("fresh log is dirty or saveable")
	}

	if err := l.Mutate(setPort("9090")); err != nil {
		t.Fatalf("Mutate failed: %v", err)
	}
	if !l.IsDirty() {
		t.Errorf("in-place mutation should make the log dirty")
	}
	if l.IsSaveable() {
		t.Errorf("unconcealed mutation should not make the log saveable")
	}

	if _, err := l.Conceal("Change port", nil); err != nil {
		t.Fatalf("Conceal failed: %v", err)
	}
	if l.IsDirty() {
		t.Errorf("conceal should clear dirty")
	}
	if !l.IsSaveable() {
		t.Errorf("concealed change should be saveable")
	}

	// A second unconcealed change leaves saveable untouched.
	if err := l.Mutate(setPort("9191")); err != nil {
		t.Fatalf("Mutate failed: %v", err)
	}
	if !l.IsDirty() || !l.IsSaveable() {
		t.Errorf("dirty = %v, saveable = %v, want both true", l.IsDirty(), l.IsSaveable())
	}

	if err := l.Discard(); err != nil {
		t.Fatalf("Discard failed: %v", err)
	}
	if l.IsDirty() {
		t.Errorf("discard should clear dirty")
	}
	if got := l.State().Node("N1").Process("P1").Parameter("port").Value.Literal; got != "9090" {
		t.Errorf("discard lost concealed edit: port = %s", got)
	}
	if l.UndoLen() != 1 {
		t.Errorf("discard touched the undo stack: %d", l.UndoLen())
	}
}

func TestLog_ConcealRevertingEditIsNotSaveable(t *testing.T) {
	l := newLog(t)
	mustEdit(t, l, "change", setPort("9090"))
	mustEdit(t, l, "revert", setPort("8080"))

	if l.UndoLen() != 2 {
		t.Fatalf("UndoLen = %d, want 2", l.UndoLen())
	}
	if l.IsSaveable() {
		t.Errorf("state equal to base should not be saveable")
	}
}

func TestLog_Sink(t *testing.T) {
	var published []*model.Snapshot
	l := New(WithSink(func(s *model.Snapshot) {
		published = append(published, s)
	}))
	if err := l.Reset(baseSnapshot()); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	mustEdit(t, l, "change", setPort("9090"))
	if err := l.Undo(); err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	if err := l.Redo(); err != nil {
		t.Fatalf("Redo failed: %v", err)
	}
	if err := l.Discard(); err != nil {
		t.Fatalf("Discard failed: %v", err)
	}

	// Reset, conceal, undo, redo and discard publish exactly once each.
	if len(published) != 5 {
		t.Fatalf("published %d snapshots, want 5", len(published))
	}

	// Published snapshots are private copies.
	published[4].Node("N1").Process("P1").Parameter("port").Value = model.Literal("1")
	if got := l.State().Node("N1").Process("P1").Parameter("port").Value.Literal; got != "9090" {
		t.Errorf("published snapshot aliases the log: port = %s", got)
	}
}

func TestLog_ResetDoesNotAliasInput(t *testing.T) {
	base := baseSnapshot()
	l := New()
	if err := l.Reset(base); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	base.Document.Name = "changed behind the log's back"
	if got := l.Base().Document.Name; got != "Instance" {
		t.Errorf("base aliases caller snapshot: %s", got)
	}
}

func TestLog_Strategies(t *testing.T) {
	for _, s := range []confedit.CloneStrategy{confedit.StrategyReflect, confedit.StrategyGoClone, confedit.StrategyDeepCopy} {
		t.Run(string(s), func(t *testing.T) {
			l := newLog(t, WithStrategy(s))
			mustEdit(t, l, "change", setPort("9090"))
			if err := l.Undo(); err != nil {
				t.Fatalf("Undo failed: %v", err)
			}
			if confedit.HasChanges(baseSnapshot(), l.State()) {
				t.Errorf("undo did not restore base")
			}
		})
	}
}
