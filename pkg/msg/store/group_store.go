package store

import (
	"github.com/corosync/go-msgsvc/pkg/msg/errs"
	"github.com/corosync/go-msgsvc/pkg/msg/handle"
	"github.com/corosync/go-msgsvc/pkg/msg/model"
	"github.com/corosync/go-msgsvc/pkg/msg/name"
)

// GroupStore is the process-wide singleton mapping name -> QueueGroup
// (spec §4.3), mutated only on the apply loop.
type GroupStore struct {
	groups *handle.Table[*model.QueueGroup]
	byName map[name.Name]handle.Handle
}

// NewGroupStore returns an empty store.
func NewGroupStore() *GroupStore {
	return &GroupStore{
		groups: handle.New[*model.QueueGroup](),
		byName: make(map[name.Name]handle.Handle),
	}
}

// Lookup returns the group for a name.
func (s *GroupStore) Lookup(n name.Name) (*model.QueueGroup, bool) {
	h, ok := s.byName[n]
	if !ok {
		return nil, false
	}
	return s.groups.Peek(h)
}

// Create inserts a new, empty group. ERR_EXIST on name collision (spec §4.3).
func (s *GroupStore) Create(n name.Name, policy model.GroupPolicy) error {
	if _, exists := s.byName[n]; exists {
		return errs.New(errs.Exist, "group already exists: "+n.String())
	}
	g := &model.QueueGroup{Name: n, Policy: policy}
	h := s.groups.Create(g)
	s.byName[n] = h
	return nil
}

// Delete removes an empty group (spec §4.3). Members still tagged
// Removed from a prior step are force-dropped first, matching the
// source's leeway ("implementation may also force-remove members with
// REMOVED tags, then delete").
func (s *GroupStore) Delete(n name.Name) error {
	h, ok := s.byName[n]
	if !ok {
		return errs.New(errs.NotExist, "group does not exist: "+n.String())
	}
	g, _ := s.groups.Peek(h)
	kept := g.Members[:0]
	for _, m := range g.Members {
		if m.ChangeTag != model.Removed {
			kept = append(kept, m)
		}
	}
	g.Members = kept
	if len(g.Members) > 0 {
		return errs.New(errs.InvalidParam, "group is not empty: "+n.String())
	}
	delete(s.byName, n)
	s.groups.Destroy(h)
	return nil
}

// Insert appends a new member tagged Added (spec §4.3). Both the group
// and the queue must already exist.
func (s *GroupStore) Insert(groupName, queueName name.Name, queues *QueueStore) error {
	g, ok := s.byName[groupName]
	if !ok {
		return errs.New(errs.NotExist, "group does not exist: "+groupName.String())
	}
	if _, ok := queues.Lookup(queueName); !ok {
		return errs.New(errs.NotExist, "queue does not exist: "+queueName.String())
	}
	group, _ := s.groups.Peek(g)
	if group.IndexOfMember(queueName) >= 0 {
		return errs.New(errs.Exist, "queue already a member: "+queueName.String())
	}
	group.Members = append(group.Members, model.GroupEntry{Queue: queueName, ChangeTag: model.Added})
	return nil
}

// Remove tags the member Removed (spec §4.3); the caller generates
// tracking notifications before the entry is actually unlinked via
// FinishRemoval.
func (s *GroupStore) Remove(groupName, queueName name.Name) error {
	g, ok := s.byName[groupName]
	if !ok {
		return errs.New(errs.NotExist, "group does not exist: "+groupName.String())
	}
	group, _ := s.groups.Peek(g)
	idx := group.IndexOfMember(queueName)
	if idx < 0 {
		return errs.New(errs.NotExist, "queue not a member: "+queueName.String())
	}
	group.Members[idx].ChangeTag = model.Removed
	return nil
}

// FinishRemoval unlinks every member tagged Removed, called after
// tracking notifications have been assembled for the step (spec §4.4
// step 5 runs after this; ResetChangeTags happens on the remaining
// entries).
func (s *GroupStore) FinishRemoval(groupName name.Name) {
	h, ok := s.byName[groupName]
	if !ok {
		return
	}
	group, _ := s.groups.Peek(h)
	kept := group.Members[:0]
	for _, m := range group.Members {
		if m.ChangeTag != model.Removed {
			kept = append(kept, m)
		}
	}
	group.Members = kept
}

// RemoveQueueEverywhere implicitly removes queueName from every group
// it belongs to, used when a queue is destroyed (spec §3's QueueGroup
// lifecycle: "membership mutated only by Insert/Remove/implicit removal
// on queue destruction").
func (s *GroupStore) RemoveQueueEverywhere(queueName name.Name) []name.Name {
	var touched []name.Name
	for n, h := range s.byName {
		group, _ := s.groups.Peek(h)
		if idx := group.IndexOfMember(queueName); idx >= 0 {
			group.Members[idx].ChangeTag = model.Removed
			touched = append(touched, n)
		}
	}
	return touched
}

// Names returns every group name, in no particular order.
func (s *GroupStore) Names() []name.Name {
	out := make([]name.Name, 0, len(s.byName))
	for n := range s.byName {
		out = append(out, n)
	}
	return out
}

// Absorb materializes a group carried by a StateTransferGroup record
// (C9 join-time sync), same idempotency rule as QueueStore.Absorb:
// a node that already has groupName ignores the call.
func (s *GroupStore) Absorb(groupName name.Name, policy model.GroupPolicy, members []name.Name) {
	if _, ok := s.byName[groupName]; ok {
		return
	}
	g := &model.QueueGroup{Name: groupName, Policy: policy}
	for _, m := range members {
		g.Members = append(g.Members, model.GroupEntry{Queue: m, ChangeTag: model.NoChange})
	}
	h := s.groups.Create(g)
	s.byName[groupName] = h
}
