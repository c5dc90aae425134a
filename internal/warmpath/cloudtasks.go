package warmpath

import (
	"context"
	"encoding/json"
	"fmt"

	cloudtasks "cloud.google.com/go/cloudtasks/apiv2"
	cloudtaskspb "cloud.google.com/go/cloudtasks/apiv2/cloudtaskspb"

	"github.com/knhk/core/internal/fiber"
)

// wireParkedRecord is the JSON body shipped in a Cloud Tasks HTTP task.
type wireParkedRecord struct {
	Reason      string `json:"reason"`
	ShardID     uint32 `json:"shard_id"`
	Tick        uint64 `json:"tick"`
	CycleID     uint64 `json:"cycle_id"`
	Predicate   uint64 `json:"predicate"`
	PartialDesc string `json:"partial_desc"`
}

// CloudTasksOverflow enqueues parked records onto a Cloud Tasks queue for
// later, out-of-process replay — the overflow path SPEC_FULL.md §5 calls
// for when the warm-path container pool itself is saturated.
//
// Grounded on the teacher's internal/webhooks/cloud_dispatcher.go
// CloudDispatcher: same cloudtasks.NewClient/CreateTaskRequest/HttpRequest
// construction, generalized from "deliver a signed webhook" to "replay a
// parked workflow run".
type CloudTasksOverflow struct {
	client    *cloudtasks.Client
	queuePath string
	targetURL string
}

// NewCloudTasksOverflow constructs an Overflow backed by a Cloud Tasks
// queue. targetURL is the HTTP endpoint the queue will POST each replayed
// record to.
func NewCloudTasksOverflow(ctx context.Context, queuePath, targetURL string) (*CloudTasksOverflow, error) {
	client, err := cloudtasks.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("warmpath: cloudtasks client: %w", err)
	}
	return &CloudTasksOverflow{client: client, queuePath: queuePath, targetURL: targetURL}, nil
}

func (o *CloudTasksOverflow) Enqueue(ctx context.Context, rec fiber.ParkedRecord) error {
	body, err := json.Marshal(wireParkedRecord{
		Reason:      rec.Reason,
		ShardID:     rec.ShardID,
		Tick:        rec.Tick,
		CycleID:     rec.CycleID,
		Predicate:   rec.Predicate,
		PartialDesc: rec.PartialDesc,
	})
	if err != nil {
		return fmt.Errorf("warmpath: marshal parked record: %w", err)
	}

	req := &cloudtaskspb.CreateTaskRequest{
		Parent: o.queuePath,
		Task: &cloudtaskspb.Task{
			MessageType: &cloudtaskspb.Task_HttpRequest{
				HttpRequest: &cloudtaskspb.HttpRequest{
					HttpMethod: cloudtaskspb.HttpMethod_POST,
					Url:        o.targetURL,
					Headers:    map[string]string{"Content-Type": "application/json"},
					Body:       body,
				},
			},
		},
	}
	_, err = o.client.CreateTask(ctx, req)
	if err != nil {
		return fmt.Errorf("warmpath: create task: %w", err)
	}
	return nil
}

func (o *CloudTasksOverflow) Close() error {
	return o.client.Close()
}
