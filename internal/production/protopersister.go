package production

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// ProtoPersister stores snapshots as binary protobuf messages. The
// snapshot travels as a google.protobuf.Struct built from its JSON form,
// so the memory type needs no generated message.
type ProtoPersister[M any] struct {
	store fileStore
}

// NewProtoPersister creates a ProtoPersister, ensuring the directory exists.
func NewProtoPersister[M any](dir string) (*ProtoPersister[M], error) {
	store, err := newFileStore(dir, ".pb")
	if err != nil {
		return nil, err
	}
	return &ProtoPersister[M]{store: store}, nil
}

func (p *ProtoPersister[M]) Save(ctx context.Context, snapshot Snapshot[M]) error {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return fmt.Errorf("json unmarshal: %w", err)
	}

	msg, err := structpb.NewStruct(fields)
	if err != nil {
		return fmt.Errorf("build struct: %w", err)
	}

	data, err := proto.MarshalOptions{Deterministic: true}.Marshal(msg)
	if err != nil {
		return fmt.Errorf("proto marshal: %w", err)
	}

	return p.store.write(ctx, snapshot.MachineID, data)
}

func (p *ProtoPersister[M]) Load(ctx context.Context, machineID string) (Snapshot[M], error) {
	data, err := p.store.read(ctx, machineID)
	if err != nil {
		return Snapshot[M]{}, err
	}

	var msg structpb.Struct
	if err := proto.Unmarshal(data, &msg); err != nil {
		return Snapshot[M]{}, fmt.Errorf("proto unmarshal: %w", err)
	}

	raw, err := json.Marshal(msg.AsMap())
	if err != nil {
		return Snapshot[M]{}, fmt.Errorf("json marshal: %w", err)
	}

	var snapshot Snapshot[M]
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return Snapshot[M]{}, fmt.Errorf("json unmarshal: %w", err)
	}
	snapshot.MachineID = machineID

	return snapshot, nil
}
