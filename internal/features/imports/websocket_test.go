package imports

import (
	"testing"

	"go-psa/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestProgressHubPublishToSubscriber(t *testing.T) {
	hub := NewProgressHub()
	id := primitive.NewObjectID()

	ch := hub.Subscribe(id.Hex())
	defer hub.Unsubscribe(id.Hex(), ch)

	hub.Publish(models.ImportProgress{ExecutionID: id, ProcessedRecords: 5})

	select {
	case p := <-ch:
		if p.ProcessedRecords != 5 {
			t.Errorf("processed = %d, want 5", p.ProcessedRecords)
		}
	default:
		t.Fatal("expected a buffered snapshot")
	}
}

func TestProgressHubKeepsLatestSnapshot(t *testing.T) {
	hub := NewProgressHub()
	id := primitive.NewObjectID()

	ch := hub.Subscribe(id.Hex())
	defer hub.Unsubscribe(id.Hex(), ch)

	// A slow subscriber never blocks the publisher; it sees the newest
	// snapshot, not the backlog.
	hub.Publish(models.ImportProgress{ExecutionID: id, ProcessedRecords: 10})
	hub.Publish(models.ImportProgress{ExecutionID: id, ProcessedRecords: 20})
	hub.Publish(models.ImportProgress{ExecutionID: id, ProcessedRecords: 30})

	p := <-ch
	if p.ProcessedRecords != 30 {
		t.Errorf("processed = %d, want the latest snapshot", p.ProcessedRecords)
	}
}

func TestProgressHubIsolatesExecutions(t *testing.T) {
	hub := NewProgressHub()
	a, b := primitive.NewObjectID(), primitive.NewObjectID()

	chA := hub.Subscribe(a.Hex())
	defer hub.Unsubscribe(a.Hex(), chA)
	chB := hub.Subscribe(b.Hex())
	defer hub.Unsubscribe(b.Hex(), chB)

	hub.Publish(models.ImportProgress{ExecutionID: a, ProcessedRecords: 1})

	select {
	case <-chB:
		t.Error("subscriber of another execution must not receive the snapshot")
	default:
	}
	select {
	case <-chA:
	default:
		t.Error("subscriber of the publishing execution must receive it")
	}
}

func TestProgressHubUnsubscribe(t *testing.T) {
	hub := NewProgressHub()
	id := primitive.NewObjectID()

	ch := hub.Subscribe(id.Hex())
	hub.Unsubscribe(id.Hex(), ch)

	hub.Publish(models.ImportProgress{ExecutionID: id, ProcessedRecords: 1})
	select {
	case <-ch:
		t.Error("unsubscribed channel must not receive snapshots")
	default:
	}
}
