package importer

import (
	"context"
	"reflect"
	"testing"
)

type recordingEntityRepo struct {
	inserted []string
}

func (r *recordingEntityRepo) Insert(ctx context.Context, entity string, data map[string]interface{}) error {
	r.inserted = append(r.inserted, entity)
	return nil
}

func TestRecordSinkDispatch(t *testing.T) {
	sink := NewRecordSink()
	var saved map[string]interface{}
	if err := sink.Register("account", func(ctx context.Context, data map[string]interface{}) error {
		saved = data
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	data := map[string]interface{}{"name": "Acme"}
	if err := sink.Save(context.Background(), "account", data); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !reflect.DeepEqual(saved, data) {
		t.Errorf("handler saw %v, want %v", saved, data)
	}
}

func TestRecordSinkUnknownEntity(t *testing.T) {
	sink := NewRecordSink()
	sink.Register("account", func(ctx context.Context, data map[string]interface{}) error { return nil })

	if err := sink.Save(context.Background(), "invoice", nil); err == nil {
		t.Error("unknown entity must error")
	}
	if sink.Known("invoice") {
		t.Error("invoice should not be known")
	}
}

func TestRecordSinkDuplicateRegistration(t *testing.T) {
	sink := NewRecordSink()
	if err := sink.Register("user", func(ctx context.Context, data map[string]interface{}) error { return nil }); err != nil {
		t.Fatal(err)
	}
	if err := sink.Register("user", func(ctx context.Context, data map[string]interface{}) error { return nil }); err == nil {
		t.Error("duplicate registration must error")
	}
}

func TestDefaultSinkEntities(t *testing.T) {
	repo := &recordingEntityRepo{}
	sink := DefaultSink(repo)

	want := []string{"account", "billingRate", "ticket", "timeEntry", "user"}
	if got := sink.Entities(); !reflect.DeepEqual(got, want) {
		t.Errorf("Entities() = %v, want %v", got, want)
	}

	if err := sink.Save(context.Background(), "ticket", map[string]interface{}{"subject": "x"}); err != nil {
		t.Fatal(err)
	}
	if len(repo.inserted) != 1 || repo.inserted[0] != "ticket" {
		t.Errorf("inserted = %v, want one ticket insert", repo.inserted)
	}
}
