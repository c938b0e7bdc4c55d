package store

import (
	"github.com/corosync/go-msgsvc/pkg/msg/errs"
	"github.com/corosync/go-msgsvc/pkg/msg/handle"
	"github.com/corosync/go-msgsvc/pkg/msg/model"
	"github.com/corosync/go-msgsvc/pkg/msg/name"
)

// OpenHandleStore is C2 applied to OpenHandle records: the arena that
// hands clients the small integer queue_handle the wire protocol
// carries, plus the indexes the exec apply engine needs to answer
// "which handles are open on this queue, from this node" (used by
// LOCAL_ROUND_ROBIN/LOCAL_BEST_QUEUE routing and by RECEIVE_CALLBACK
// dispatch) and "which handles belong to this client" (used to clean up
// leaked handles on client disconnect, spec §1).
type OpenHandleStore struct {
	table *handle.Table[model.OpenHandle]

	// byQueue indexes live handles per queue name for routing/dispatch.
	byQueue map[name.Name]map[handle.Handle]struct{}

	// byClient indexes live handles per NodeClientID for disconnect cleanup.
	byClient map[model.NodeClientID]map[handle.Handle]struct{}
}

// NewOpenHandleStore returns an empty store.
func NewOpenHandleStore() *OpenHandleStore {
	return &OpenHandleStore{
		table:    handle.New[model.OpenHandle](),
		byQueue:  make(map[name.Name]map[handle.Handle]struct{}),
		byClient: make(map[model.NodeClientID]map[handle.Handle]struct{}),
	}
}

// Create registers a new OpenHandle, born on QueueOpen/QueueOpenAsync
// apply (spec §3).
func (s *OpenHandleStore) Create(oh model.OpenHandle) handle.Handle {
	h := s.table.Create(oh)
	s.index(h, oh)
	return h
}

func (s *OpenHandleStore) index(h handle.Handle, oh model.OpenHandle) {
	if s.byQueue[oh.QueueName] == nil {
		s.byQueue[oh.QueueName] = make(map[handle.Handle]struct{})
	}
	s.byQueue[oh.QueueName][h] = struct{}{}

	if s.byClient[oh.Client] == nil {
		s.byClient[oh.Client] = make(map[handle.Handle]struct{})
	}
	s.byClient[oh.Client][h] = struct{}{}
}

func (s *OpenHandleStore) unindex(h handle.Handle, oh model.OpenHandle) {
	if set, ok := s.byQueue[oh.QueueName]; ok {
		delete(set, h)
		if len(set) == 0 {
			delete(s.byQueue, oh.QueueName)
		}
	}
	if set, ok := s.byClient[oh.Client]; ok {
		delete(set, h)
		if len(set) == 0 {
			delete(s.byClient, oh.Client)
		}
	}
}

// Get returns the OpenHandle record for h.
func (s *OpenHandleStore) Get(h handle.Handle) (model.OpenHandle, bool) {
	return s.table.Peek(h)
}

// Close removes the OpenHandle, called on an explicit close or on client
// disconnect (spec §3).
func (s *OpenHandleStore) Close(h handle.Handle) (model.OpenHandle, error) {
	oh, ok := s.table.Peek(h)
	if !ok {
		return model.OpenHandle{}, errs.New(errs.BadHandle, "open handle not active")
	}
	s.unindex(h, oh)
	s.table.Destroy(h)
	return oh, nil
}

// OnQueue returns every live handle open on queue n.
func (s *OpenHandleStore) OnQueue(n name.Name) []handle.Handle {
	set := s.byQueue[n]
	out := make([]handle.Handle, 0, len(set))
	for h := range set {
		out = append(out, h)
	}
	return out
}

// OnQueueForNode returns every live handle open on queue n whose client
// lives on node id, used by the LOCAL_* group routing policies (spec §4.3).
func (s *OpenHandleStore) OnQueueForNode(n name.Name, id model.NodeID) []handle.Handle {
	var out []handle.Handle
	for h := range s.byQueue[n] {
		oh, ok := s.table.Peek(h)
		if ok && oh.Client.NodeID == id {
			out = append(out, h)
		}
	}
	return out
}

// FindByClient returns the open handle client holds on queue n, if any.
// QueueClose/QueueStatusGet/QueueUnlink identify their target purely by
// queue_name (spec §6), so the apply engine resolves the caller's own
// handle this way rather than carrying it on the wire.
func (s *OpenHandleStore) FindByClient(n name.Name, client model.NodeClientID) (handle.Handle, bool) {
	for h := range s.byQueue[n] {
		oh, ok := s.table.Peek(h)
		if ok && oh.Client == client {
			return h, true
		}
	}
	return 0, false
}

// ForClient returns every live handle owned by client, used to clean up
// leaked handles when an IPC connection drops (spec §1 failure model).
func (s *OpenHandleStore) ForClient(client model.NodeClientID) []handle.Handle {
	set := s.byClient[client]
	out := make([]handle.Handle, 0, len(set))
	for h := range set {
		out = append(out, h)
	}
	return out
}
