package transfer

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perchhost/panel/internal/events"
	"github.com/perchhost/panel/internal/models"
	"github.com/perchhost/panel/internal/repository"
	"github.com/perchhost/panel/internal/wings"
)

type statusUpdate struct {
	id     uint
	status models.ServerStatus
	nodeID *uint
}

type fakeServers struct {
	updates []statusUpdate
	err     error
}

func (f *fakeServers) UpdateStatus(id uint, status models.ServerStatus) error {
	if f.err != nil {
		return f.err
	}
	f.updates = append(f.updates, statusUpdate{id: id, status: status})
	return nil
}

func (f *fakeServers) UpdateStatusAndNode(id uint, status models.ServerStatus, nodeID uint) error {
	if f.err != nil {
		return f.err
	}
	f.updates = append(f.updates, statusUpdate{id: id, status: status, nodeID: &nodeID})
	return nil
}

type fakeTransfers struct {
	record     *models.Transfer
	created    []*models.Transfer
	inProgress []uint
	completed  []uint
	failed     map[uint]string
	progress   map[uint]float64
	createErr  error
}

func (f *fakeTransfers) Create(transfer *models.Transfer) error {
	if f.createErr != nil {
		return f.createErr
	}
	transfer.ID = uint(len(f.created) + 1)
	f.created = append(f.created, transfer)
	return nil
}

func (f *fakeTransfers) FindLatestByServer(serverID uint) (*models.Transfer, error) {
	if f.record == nil || f.record.ServerID != serverID {
		return nil, repository.ErrTransferNotFound
	}
	return f.record, nil
}

func (f *fakeTransfers) FindActiveByServer(serverID uint) (*models.Transfer, error) {
	if f.record == nil || f.record.ServerID != serverID || f.record.IsTerminal() {
		return nil, repository.ErrTransferNotFound
	}
	return f.record, nil
}

func (f *fakeTransfers) HasActive(serverID uint) (bool, error) {
	transfer, err := f.FindActiveByServer(serverID)
	if errors.Is(err, repository.ErrTransferNotFound) {
		return false, nil
	}
	return transfer != nil, err
}

func (f *fakeTransfers) MarkInProgress(id uint) error {
	f.inProgress = append(f.inProgress, id)
	return nil
}

func (f *fakeTransfers) UpdateProgress(id uint, progress float64) error {
	if f.progress == nil {
		f.progress = make(map[uint]float64)
	}
	f.progress[id] = progress
	return nil
}

func (f *fakeTransfers) MarkCompleted(id uint) error {
	f.completed = append(f.completed, id)
	return nil
}

func (f *fakeTransfers) MarkFailed(id uint, errMsg string) error {
	if f.failed == nil {
		f.failed = make(map[uint]string)
	}
	f.failed[id] = errMsg
	return nil
}

type fakeNodes struct {
	nodes map[uint]*models.Node
}

func (f *fakeNodes) FindByID(id uint) (*models.Node, error) {
	node, ok := f.nodes[id]
	if !ok {
		return nil, repository.ErrNodeNotFound
	}
	return node, nil
}

type fakeBackups struct {
	deletedFor []uint
}

func (f *fakeBackups) DeleteByServer(serverID uint) (int64, error) {
	f.deletedFor = append(f.deletedFor, serverID)
	return 2, nil
}

type agentCall struct {
	node       uint
	op         string
	serverUUID string
	transfer   wings.TransferRequest
}

type fakeAgents struct {
	calls     []agentCall
	startErr  error
	cancelErr error
}

func (f *fakeAgents) ops() []string {
	out := make([]string, 0, len(f.calls))
	for _, call := range f.calls {
		out = append(out, call.op)
	}
	return out
}

type fakeAgentClient struct {
	agents *fakeAgents
	nodeID uint
}

func (c *fakeAgentClient) StartTransfer(serverUUID string, req wings.TransferRequest) (*wings.Response, error) {
	c.agents.calls = append(c.agents.calls, agentCall{node: c.nodeID, op: "start_transfer", serverUUID: serverUUID, transfer: req})
	if c.agents.startErr != nil {
		return nil, c.agents.startErr
	}
	return &wings.Response{StatusCode: 202}, nil
}

func (c *fakeAgentClient) CancelTransfer(serverUUID string) (*wings.Response, error) {
	c.agents.calls = append(c.agents.calls, agentCall{node: c.nodeID, op: "cancel_transfer", serverUUID: serverUUID})
	if c.agents.cancelErr != nil {
		return nil, c.agents.cancelErr
	}
	return &wings.Response{StatusCode: 202}, nil
}

func (c *fakeAgentClient) DeleteServer(serverUUID string) (*wings.Response, error) {
	c.agents.calls = append(c.agents.calls, agentCall{node: c.nodeID, op: "delete_server", serverUUID: serverUUID})
	return &wings.Response{StatusCode: 204}, nil
}

func (c *fakeAgentClient) SyncServer(serverUUID string) (*wings.Response, error) {
	c.agents.calls = append(c.agents.calls, agentCall{node: c.nodeID, op: "sync_server", serverUUID: serverUUID})
	return &wings.Response{StatusCode: 204}, nil
}

type fakeBus struct {
	published []events.Event
}

func (f *fakeBus) Publish(event events.Event) {
	f.published = append(f.published, event)
}

func (f *fakeBus) types() []events.EventType {
	out := make([]events.EventType, 0, len(f.published))
	for _, e := range f.published {
		out = append(out, e.Type)
	}
	return out
}

type harness struct {
	servers   *fakeServers
	transfers *fakeTransfers
	nodes     *fakeNodes
	backups   *fakeBackups
	agents    *fakeAgents
	bus       *fakeBus
}

func newHarness(record *models.Transfer, nodeIDs ...uint) (*Coordinator, *harness) {
	h := &harness{
		servers:   &fakeServers{},
		transfers: &fakeTransfers{record: record},
		nodes:     &fakeNodes{nodes: make(map[uint]*models.Node)},
		backups:   &fakeBackups{},
		agents:    &fakeAgents{},
		bus:       &fakeBus{},
	}
	for _, id := range nodeIDs {
		h.nodes.nodes[id] = &models.Node{
			ID:          id,
			Scheme:      "http",
			FQDN:        "node.example.com",
			DaemonPort:  8080,
			TokenID:     "tid",
			TokenSecret: "secret",
		}
	}
	clients := func(node *models.Node) AgentClient {
		return &fakeAgentClient{agents: h.agents, nodeID: node.ID}
	}
	c := NewCoordinator(h.servers, h.transfers, h.nodes, h.backups, clients, h.bus, "https://panel.example.com", time.Hour)
	return c, h
}

func testServer() *models.Server {
	return &models.Server{
		ID:     10,
		UUID:   "f6adbb10-11d4-4b35-a384-a056987ee10b",
		NodeID: 1,
		Status: models.StatusTransferring,
	}
}

func activeTransfer() *models.Transfer {
	return &models.Transfer{
		ID:                5,
		ServerID:          10,
		SourceNodeID:      1,
		DestinationNodeID: 2,
		Status:            models.TransferStatusInProgress,
	}
}

func TestCompleteReassignsToDestination(t *testing.T) {
	c, h := newHarness(activeTransfer(), 1, 2)
	server := testServer()

	dest := uint(2)
	require.NoError(t, c.Complete(server, &dest))

	require.Len(t, h.servers.updates, 1)
	update := h.servers.updates[0]
	assert.Equal(t, models.StatusOffline, update.status)
	require.NotNil(t, update.nodeID)
	assert.Equal(t, uint(2), *update.nodeID)

	assert.Equal(t, []uint{5}, h.transfers.completed)
	assert.Equal(t, []uint{10}, h.backups.deletedFor)
	assert.Equal(t, []events.EventType{events.EventTransferCompleted}, h.bus.types())

	// Source node cleanup and a destination config sync are best effort
	// but should both have been attempted.
	require.Equal(t, []string{"delete_server", "sync_server"}, h.agents.ops())
	assert.Equal(t, uint(1), h.agents.calls[0].node)
	assert.Equal(t, uint(2), h.agents.calls[1].node)
}

func TestCompleteFallsBackToRecordedDestination(t *testing.T) {
	c, h := newHarness(activeTransfer(), 1, 2)

	// Status callback without a node id: the transfer record knows.
	require.NoError(t, c.Complete(testServer(), nil))

	require.Len(t, h.servers.updates, 1)
	require.NotNil(t, h.servers.updates[0].nodeID)
	assert.Equal(t, uint(2), *h.servers.updates[0].nodeID)
}

func TestCompleteKeepsNodeWhenDestinationUnresolvable(t *testing.T) {
	c, h := newHarness(activeTransfer(), 1) // node 2 missing

	dest := uint(2)
	require.NoError(t, c.Complete(testServer(), &dest))

	// Server still goes offline and the transfer still completes, the
	// node pointer just stays put.
	require.Len(t, h.servers.updates, 1)
	assert.Equal(t, models.StatusOffline, h.servers.updates[0].status)
	assert.Nil(t, h.servers.updates[0].nodeID)
	assert.Equal(t, []uint{5}, h.transfers.completed)
}

func TestCompleteIgnoresTerminalTransfer(t *testing.T) {
	record := activeTransfer()
	record.Status = models.TransferStatusCompleted
	c, h := newHarness(record, 1, 2)

	dest := uint(2)
	require.NoError(t, c.Complete(testServer(), &dest))

	assert.Empty(t, h.servers.updates)
	assert.Empty(t, h.transfers.completed)
	assert.Empty(t, h.bus.published)
}

func TestFailRevertsToSourceNode(t *testing.T) {
	record := activeTransfer()
	record.SourceNodeID = 7
	c, h := newHarness(record, 1, 2)

	require.NoError(t, c.Fail(testServer(), "archive checksum mismatch"))

	require.Len(t, h.servers.updates, 1)
	update := h.servers.updates[0]
	assert.Equal(t, models.StatusOffline, update.status)
	require.NotNil(t, update.nodeID)
	assert.Equal(t, uint(7), *update.nodeID)

	assert.Equal(t, "archive checksum mismatch", h.transfers.failed[5])
	assert.Equal(t, []events.EventType{events.EventTransferFailed}, h.bus.types())
}

func TestFailWithoutRecordFallsBackToCurrentNode(t *testing.T) {
	c, h := newHarness(nil, 1, 2)

	require.NoError(t, c.Fail(testServer(), ""))

	require.Len(t, h.servers.updates, 1)
	require.NotNil(t, h.servers.updates[0].nodeID)
	assert.Equal(t, uint(1), *h.servers.updates[0].nodeID)
	assert.Empty(t, h.transfers.failed)
	// The failure event still fires even without a record.
	assert.Equal(t, []events.EventType{events.EventTransferFailed}, h.bus.types())
}

func TestFailDefaultsErrorMessage(t *testing.T) {
	c, h := newHarness(activeTransfer(), 1, 2)

	require.NoError(t, c.Fail(testServer(), ""))

	assert.Equal(t, DefaultStatusError, h.transfers.failed[5])
}

func TestFailAfterSuccessIsIgnored(t *testing.T) {
	record := activeTransfer()
	record.Status = models.TransferStatusCompleted
	c, h := newHarness(record, 1, 2)

	require.NoError(t, c.Fail(testServer(), "late source failure"))

	assert.Empty(t, h.servers.updates, "a completed transfer must never be undone")
	assert.Empty(t, h.transfers.failed)
	assert.Empty(t, h.bus.published)
}

func TestDuplicateFailureIsIgnored(t *testing.T) {
	record := activeTransfer()
	record.Status = models.TransferStatusFailed
	c, h := newHarness(record, 1, 2)

	require.NoError(t, c.Fail(testServer(), "second report"))

	assert.Empty(t, h.servers.updates)
	assert.Empty(t, h.transfers.failed)
}

func TestInitiateRejectsSameNode(t *testing.T) {
	c, _ := newHarness(nil, 1, 2)
	server := testServer()
	server.Status = models.StatusOffline

	_, err := c.Initiate(server, 1)
	assert.ErrorIs(t, err, ErrSameNode)
}

func TestInitiateRejectsActiveTransfer(t *testing.T) {
	c, _ := newHarness(activeTransfer(), 1, 2)
	server := testServer()
	server.Status = models.StatusOffline

	_, err := c.Initiate(server, 2)
	assert.ErrorIs(t, err, ErrAlreadyTransferring)
}

func TestInitiateRejectsNonTransferableStatus(t *testing.T) {
	c, _ := newHarness(nil, 1, 2)
	server := testServer()
	server.Status = models.StatusInstalling

	_, err := c.Initiate(server, 2)
	assert.ErrorIs(t, err, ErrNotTransferable)
}

func TestInitiateDispatchesToSourceAgent(t *testing.T) {
	c, h := newHarness(nil, 1, 2)
	server := testServer()
	server.Status = models.StatusOffline

	record, err := c.Initiate(server, 2)
	require.NoError(t, err)
	require.NotNil(t, record)

	// Server is marked transferring but its node pointer is untouched
	// until the destination confirms.
	require.Len(t, h.servers.updates, 1)
	assert.Equal(t, models.StatusTransferring, h.servers.updates[0].status)
	assert.Nil(t, h.servers.updates[0].nodeID)

	require.Len(t, h.agents.calls, 1)
	call := h.agents.calls[0]
	assert.Equal(t, uint(1), call.node, "the source agent pushes the archive")
	assert.Equal(t, "start_transfer", call.op)
	assert.Equal(t, server.UUID, call.serverUUID)
	assert.Equal(t, "http://node.example.com:8080/api/transfers", call.transfer.URL)
	assert.True(t, len(call.transfer.Token) > len("Bearer "), "token must be a bearer credential")
	assert.Equal(t, "Bearer ", call.transfer.Token[:7])

	require.Len(t, h.transfers.created, 1)
	created := h.transfers.created[0]
	assert.Equal(t, uint(10), created.ServerID)
	assert.Equal(t, uint(1), created.SourceNodeID)
	assert.Equal(t, uint(2), created.DestinationNodeID)

	// The record starts pending and only moves once the source agent
	// accepted the command.
	assert.Equal(t, []uint{created.ID}, h.transfers.inProgress)
	assert.Equal(t, models.TransferStatusInProgress, created.Status)

	assert.Equal(t, []events.EventType{events.EventTransferInitiated}, h.bus.types())
}

func TestInitiateRevertsStatusOnDispatchFailure(t *testing.T) {
	c, h := newHarness(nil, 1, 2)
	h.agents.startErr = &wings.Error{StatusCode: 500, Kind: wings.ErrKindAgent, Message: "agent unreachable"}
	server := testServer()
	server.Status = models.StatusOffline

	_, err := c.Initiate(server, 2)
	require.Error(t, err)

	// transferring, then reverted back to the previous status
	require.Len(t, h.servers.updates, 2)
	assert.Equal(t, models.StatusTransferring, h.servers.updates[0].status)
	assert.Equal(t, models.StatusOffline, h.servers.updates[1].status)

	// The pending record is finalized as failed; no callback will ever
	// arrive for a dispatch that never happened.
	require.Len(t, h.transfers.created, 1)
	assert.Contains(t, h.transfers.failed[h.transfers.created[0].ID], "agent unreachable")
	assert.Empty(t, h.transfers.inProgress)
	assert.Empty(t, h.bus.published)
}

func TestInitiateToleratesRecordCreateFailure(t *testing.T) {
	c, h := newHarness(nil, 1, 2)
	h.transfers.createErr = errors.New("insert failed")
	server := testServer()
	server.Status = models.StatusOffline

	record, err := c.Initiate(server, 2)
	require.NoError(t, err)
	assert.Nil(t, record)

	// The agent was still dispatched; only the bookkeeping is lost.
	assert.Equal(t, []string{"start_transfer"}, h.agents.ops())
	assert.Equal(t, []events.EventType{events.EventTransferInitiated}, h.bus.types())
}

func TestArchiveReceivedRecordsProgress(t *testing.T) {
	c, h := newHarness(activeTransfer(), 1, 2)

	c.ArchiveReceived(testServer())

	assert.Equal(t, map[uint]float64{5: 50}, h.transfers.progress)
}

func TestArchiveReceivedIgnoresTerminalTransfer(t *testing.T) {
	record := activeTransfer()
	record.Status = models.TransferStatusCompleted
	c, h := newHarness(record, 1, 2)

	c.ArchiveReceived(testServer())

	assert.Empty(t, h.transfers.progress)
}

func TestCancelDispatchesToSourceAgent(t *testing.T) {
	record := activeTransfer()
	record.SourceNodeID = 1
	c, h := newHarness(record, 1, 2)

	require.NoError(t, c.Cancel(testServer()))

	require.Len(t, h.agents.calls, 1)
	assert.Equal(t, "cancel_transfer", h.agents.calls[0].op)
	assert.Equal(t, uint(1), h.agents.calls[0].node)

	// State reverts only when the failure callback arrives, not here.
	assert.Empty(t, h.servers.updates)
	assert.Empty(t, h.transfers.failed)
}

func TestCancelWithoutActiveTransfer(t *testing.T) {
	c, h := newHarness(nil, 1, 2)

	err := c.Cancel(testServer())
	assert.ErrorIs(t, err, ErrNoActiveTransfer)
	assert.Empty(t, h.agents.calls)
}
