package raknet

import (
	"fmt"
	"net"
	"sync"
	sync_atomic "sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Socket is the subset of *net.UDPConn a Session needs. The socket is
// shared across every session bound to a listener (spec.md §3
// ownership: "the socket is shared among sessions; the session holds a
// non-owning reference"), so sending on it must already be
// concurrency-safe, which *net.UDPConn is.
type Socket interface {
	WriteToUDP(b []byte, addr *net.UDPAddr) (int, error)
}

// CompressionAlgorithm selects the codec used by the game-packet
// envelope (spec.md §6).
type CompressionAlgorithm int

const (
	CompressionDeflate CompressionAlgorithm = iota
	CompressionSnappy
)

// CompressionConfig governs the game-packet envelope's compression
// step (spec.md §6, §4.12). Process-wide in principle, but threaded
// through explicitly rather than read from a global so tests can
// override it by injection (spec.md §9).
type CompressionConfig struct {
	Algorithm CompressionAlgorithm
	Threshold int
}

// DefaultCompressionConfig matches the teacher's own defaults for
// threshold (small packets aren't worth the CPU to shrink).
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{Algorithm: CompressionDeflate, Threshold: 256}
}

// SessionConfig configures a new Session.
type SessionConfig struct {
	MTU         uint16
	Compression CompressionConfig
	Encryptor   Encryptor // optional
	Events      EventSink // optional
	Metrics     *Metrics  // optional
	Logger      *zap.SugaredLogger
	// Deliver receives each whole frame body, already reassembled and
	// released in order, for the game layer to decode.
	Deliver func(body []byte)
}

// Session binds the frame codec, reliability bookkeeping, ordering
// channels, send/recovery queues and compound collector to a single
// remote peer (spec.md §3). It owns its queues, counters and channel
// array exclusively; the socket is a shared, non-owning reference.
type Session struct {
	socket Socket
	addr   *net.UDPAddr
	mtu    uint16

	compression CompressionConfig
	encryptor   Encryptor
	events      EventSink
	metrics     *Metrics
	log         *zap.SugaredLogger
	deliver     func(body []byte)

	tickCounter   sync_atomic.Uint64
	batchSeq      sync_atomic.Uint32
	reliableIndex sync_atomic.Uint32
	sequenceIndex sync_atomic.Uint32
	compoundID    sync_atomic.Uint32

	lastUpdateMu sync.RWMutex
	lastUpdate   time.Time

	sendQueue     *SendQueue
	recoveryQueue *RecoveryQueue
	compound      *CompoundCollector
	orderChannels [MaxChannels]*OrderChannel
	ack           *ackAggregator

	dedupMu      sync.Mutex
	seenReliable map[uint32]struct{}

	seqMu               sync.Mutex
	sawSequence         bool
	highestSequenceSeen uint32

	recvMu              sync.Mutex
	haveReceivedAnything bool
	nextExpectedBatch    uint32
	missingBatches       map[uint32]struct{}

	cancelled sync_atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
}

// NewSession creates a session bound to addr, ready to have its tick
// and packet-receive tasks started. Lifecycle per spec.md §3: created
// on a successful open-connection handshake.
func NewSession(socket Socket, addr *net.UDPAddr, cfg SessionConfig) *Session {
	if cfg.MTU == 0 {
		cfg.MTU = DefaultMTU
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}
	if cfg.Deliver == nil {
		cfg.Deliver = func([]byte) {}
	}

	s := &Session{
		socket:            socket,
		addr:              addr,
		mtu:               cfg.MTU,
		compression:       cfg.Compression,
		encryptor:         cfg.Encryptor,
		events:            cfg.Events,
		metrics:           cfg.Metrics,
		log:               cfg.Logger,
		deliver:           cfg.Deliver,
		sendQueue:         NewSendQueue(),
		recoveryQueue:     NewRecoveryQueue(),
		compound:          NewCompoundCollector(),
		ack:               &ackAggregator{},
		seenReliable:      make(map[uint32]struct{}),
		missingBatches:    make(map[uint32]struct{}),
		done:              make(chan struct{}),
		lastUpdate:        time.Now(),
	}
	for i := range s.orderChannels {
		s.orderChannels[i] = NewOrderChannel()
	}
	s.emit(SessionOpened)
	return s
}

// DefaultMTU is used when a SessionConfig leaves MTU unset.
const DefaultMTU = 1400

// RemoteAddr returns the peer this session is bound to.
func (s *Session) RemoteAddr() *net.UDPAddr { return s.addr }

// MTU returns the negotiated MTU for this session.
func (s *Session) MTU() uint16 { return s.mtu }

// Cancelled reports whether the session has been cancelled, whether by
// explicit disconnect, idle timeout or a fatal/crypto error.
func (s *Session) Cancelled() bool { return s.cancelled.Load() }

// Done is closed once the session's background tasks have exited.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) getLastUpdate() time.Time {
	s.lastUpdateMu.RLock()
	defer s.lastUpdateMu.RUnlock()
	return s.lastUpdate
}

func (s *Session) touchLastUpdate() {
	s.lastUpdateMu.Lock()
	s.lastUpdate = time.Now()
	s.lastUpdateMu.Unlock()
}

// Disconnect triggers cancellation after a final flush, mirroring the
// explicit-disconnect cancellation trigger from spec.md §5.
func (s *Session) Disconnect() {
	s.cancel(SessionClosed)
}

func (s *Session) cancel(reason EventType) {
	s.closeOnce.Do(func() {
		s.cancelled.Store(true)
		s.emit(reason)
	})
}

// StartTickJob runs the 20 Hz tick loop until the session is
// cancelled, then performs the final flush spec.md §4.7 and §5
// describe (flush acknowledgements, then flush every band once more)
// before closing Done(). Grounded on original_source raknet/tick.rs's
// start_tick_job.
func (s *Session) StartTickJob() {
	go func() {
		ticker := time.NewTicker(TickInterval)
		defer ticker.Stop()

		for !s.cancelled.Load() {
			if err := s.tick(); err != nil {
				s.log.Errorw("tick failed", "error", err)
			}
			<-ticker.C
		}

		if err := s.flushAcknowledgements(); err != nil {
			s.log.Errorw("final acknowledgement flush failed", "error", err)
		}
		if err := s.flushAllBands(); err != nil {
			s.log.Errorw("final send-queue flush failed", "error", err)
		}
		close(s.done)
	}()
}

// StartPacketJob drains the raw datagrams the shared socket's receive
// loop forwards over inbound, handling each one, until inbound is
// closed (the session has been torn down upstream), then performs a
// final flush. Grounded on original_source raknet/tick.rs's
// start_packet_job, which reads an mpsc::Receiver fed by the socket's
// single reader.
func (s *Session) StartPacketJob(inbound <-chan []byte) {
	go func() {
		for data := range inbound {
			if err := s.HandleRawPacket(data); err != nil {
				s.log.Warnw("dropping malformed datagram", "error", err)
			}
		}
		if err := s.flushAll(); err != nil {
			s.log.Errorw("flush on packet job close failed", "error", err)
		}
	}()
}

// tick performs the per-tick bookkeeping from spec.md §4.7: advance
// the tick counter, check the idle timeout, flush the send queue on
// the §4.9 schedule.
func (s *Session) tick() error {
	tick := s.tickCounter.Add(1) - 1

	if time.Since(s.getLastUpdate()) > SessionTimeout {
		s.cancel(SessionTimedOut)
		return nil
	}

	return s.flush(tick)
}

// flush implements the §4.9 schedule: High every tick, Medium every
// other tick, Low and acknowledgements every fourth tick.
func (s *Session) flush(tick uint64) error {
	if frames, ok := s.sendQueue.Flush(PriorityHigh); ok {
		if err := s.sendRawFrames(frames); err != nil {
			return err
		}
	}
	if tick%2 == 0 {
		if frames, ok := s.sendQueue.Flush(PriorityMedium); ok {
			if err := s.sendRawFrames(frames); err != nil {
				return err
			}
		}
	}
	if tick%4 == 0 {
		if frames, ok := s.sendQueue.Flush(PriorityLow); ok {
			if err := s.sendRawFrames(frames); err != nil {
				return err
			}
		}
		if err := s.flushAcknowledgements(); err != nil {
			return err
		}
	}
	return nil
}

// flushAllBands unconditionally flushes every priority band, used for
// the final flush on cancellation and whenever the packet job closes.
func (s *Session) flushAllBands() error {
	for _, p := range []Priority{PriorityHigh, PriorityMedium, PriorityLow} {
		if frames, ok := s.sendQueue.Flush(p); ok {
			if err := s.sendRawFrames(frames); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Session) flushAll() error {
	if err := s.flushAllBands(); err != nil {
		return err
	}
	return s.flushAcknowledgements()
}

// flushAcknowledgements folds the pending received batch sequence
// numbers into AckRecords and sends them immediately (spec.md §4.6).
func (s *Session) flushAcknowledgements() error {
	records, ok := s.ack.drain()
	if !ok {
		return nil
	}
	s.metrics.addAckRecordsSent(len(records))
	datagram := encodeAckDatagram(idACK, records)
	if _, err := s.socket.WriteToUDP(datagram, s.addr); err != nil {
		return newErr(KindIO, "send ack", err)
	}
	return nil
}

// SendRaw enqueues a frame for transmission at the given priority;
// reliability/order/sequence indices are assigned later, at flush
// time (spec.md §4.10).
func (s *Session) SendRaw(reliability Reliability, body []byte, priority Priority) {
	s.sendQueue.InsertRaw(priority, NewFrame(reliability, body))
}

// sendRawFrames implements spec.md §4.10: split any oversized frame
// into a compound first, then assign each resulting frame (fragment or
// not) its reliability indices and pack them into MTU-bounded batches,
// cloning reliable batches into the recovery queue before sending.
func (s *Session) sendRawFrames(frames []Frame) error {
	expanded := make([]Frame, 0, len(frames))
	for _, f := range frames {
		if f.size() > int(s.mtu) {
			expanded = append(expanded, s.splitFrame(f)...)
		} else {
			expanded = append(expanded, f)
		}
	}

	batch := FrameBatch{SequenceNumber: s.batchSeq.Add(1) - 1}
	hasReliable := false

	flushBatch := func() error {
		if batch.isEmpty() {
			return nil
		}
		if hasReliable {
			s.recoveryQueue.Insert(batch)
			s.metrics.setRecoveryQueueDepth(s.recoveryQueue.Len())
		}
		encoded := batch.Encode()
		if _, err := s.socket.WriteToUDP(encoded, s.addr); err != nil {
			return newErr(KindIO, "send frame batch", err)
		}
		s.metrics.incBatchesSent()
		return nil
	}

	for _, frame := range expanded {
		if frame.Reliability.IsOrdered() {
			frame.OrderIndex = s.orderChannels[frame.OrderChannel].nextOutboundIndex()
		}
		if frame.Reliability.IsSequenced() {
			frame.SequenceIndex = s.sequenceIndex.Add(1) - 1
		}
		if frame.Reliability.IsReliable() {
			frame.ReliableIndex = s.reliableIndex.Add(1) - 1
		}

		if batch.estimateSize()+frame.size() <= int(s.mtu) {
			batch.Frames = append(batch.Frames, frame)
			hasReliable = hasReliable || frame.Reliability.IsReliable()
			continue
		}

		if err := flushBatch(); err != nil {
			return err
		}
		hasReliable = frame.Reliability.IsReliable()
		batch = FrameBatch{
			SequenceNumber: s.batchSeq.Add(1) - 1,
			Frames:         []Frame{frame},
		}
	}

	if !batch.isEmpty() {
		if err := flushBatch(); err != nil {
			return err
		}
	} else {
		s.batchSeq.Add(^uint32(0)) // decrement: avoid a gap in the sequence space
	}

	return nil
}

// splitFrame implements spec.md §4.11: divide body into
// ceil(len/chunk_max) fragments, all sharing a fresh compound-id and
// the parent's reliability. chunk_max conservatively subtracts the
// worst-case per-frame and per-batch header overhead (open question
// noted in DESIGN.md: this can over-subtract when several fragments
// share one batch, which only yields smaller-than-necessary
// fragments, never an MTU violation).
func (s *Session) splitFrame(frame Frame) []Frame {
	overhead := frameHeaderBase + frameHeaderCompound + frameBatchHeaderSize
	if frame.Reliability.IsReliable() {
		overhead += frameHeaderReliable
	}
	if frame.Reliability.IsSequenced() {
		overhead += frameHeaderSequenced
	}
	if frame.Reliability.IsOrdered() {
		overhead += frameHeaderOrdered
	}

	chunkMax := int(s.mtu) - overhead
	if chunkMax < 1 {
		chunkMax = 1
	}

	compoundSize := (len(frame.Body) + chunkMax - 1) / chunkMax
	compoundID := uint16(s.compoundID.Add(1) - 1)

	fragments := make([]Frame, 0, compoundSize)
	for i := 0; i < compoundSize; i++ {
		lo := i * chunkMax
		hi := lo + chunkMax
		if hi > len(frame.Body) {
			hi = len(frame.Body)
		}
		fragments = append(fragments, Frame{
			Reliability:   frame.Reliability,
			IsCompound:    true,
			CompoundID:    compoundID,
			CompoundIndex: uint32(i),
			CompoundSize:  uint32(compoundSize),
			Body:          frame.Body[lo:hi],
		})
	}
	return fragments
}

// HandleRawPacket implements the receive loop of spec.md §4.8.
// Protocol errors are returned for the caller to log; they never
// cancel the session on their own.
func (s *Session) HandleRawPacket(data []byte) error {
	if len(data) == 0 {
		return newErr(KindProtocol, "handle raw packet", fmt.Errorf("empty datagram"))
	}

	switch {
	case data[0] == idACK:
		records, err := decodeAckDatagram(data)
		if err != nil {
			return err
		}
		s.recoveryQueue.Confirm(records)
		s.metrics.setRecoveryQueueDepth(s.recoveryQueue.Len())
		s.touchLastUpdate()
		return nil

	case data[0] == idNACK:
		records, err := decodeAckDatagram(data)
		if err != nil {
			return err
		}
		batches := s.recoveryQueue.Recover(records)
		frameCount := 0
		for _, batch := range batches {
			frameCount += len(batch.Frames)
			encoded := batch.Encode()
			if _, err := s.socket.WriteToUDP(encoded, s.addr); err != nil {
				return newErr(KindIO, "resend on nack", err)
			}
		}
		s.metrics.addFramesRetransmitted(frameCount)
		s.touchLastUpdate()
		return nil

	case IsFrameBatch(data[0]):
		batch, err := DecodeFrameBatch(data)
		if err != nil {
			return err
		}
		s.metrics.incBatchesReceived()
		s.recordReceivedBatch(batch.SequenceNumber)
		for _, frame := range batch.Frames {
			s.handleFrame(frame)
		}
		s.touchLastUpdate()
		return nil

	default:
		return newErr(KindProtocol, "handle raw packet", fmt.Errorf("unknown datagram kind 0x%02x", data[0]))
	}
}

// recordReceivedBatch queues the sequence number for acknowledgement
// and, on detecting a gap against the previously-seen sequence space,
// immediately sends a NACK for the missing range — NACK generation is
// driven by the receive path, unlike ACKs which are batched on a
// schedule (spec.md §4.6).
func (s *Session) recordReceivedBatch(seq uint32) {
	s.ack.add(seq)

	s.recvMu.Lock()
	var gapRecords []AckRecord
	if _, wasMissing := s.missingBatches[seq]; wasMissing {
		delete(s.missingBatches, seq)
	} else if !s.haveReceivedAnything {
		s.haveReceivedAnything = true
		s.nextExpectedBatch = seq + 1
	} else if seq >= s.nextExpectedBatch {
		if seq > s.nextExpectedBatch {
			for gap := s.nextExpectedBatch; gap < seq; gap++ {
				s.missingBatches[gap] = struct{}{}
			}
			gapRecords = []AckRecord{RangeAckRecord(s.nextExpectedBatch, seq-1)}
		}
		s.nextExpectedBatch = seq + 1
	}
	s.recvMu.Unlock()

	if len(gapRecords) > 0 {
		datagram := encodeAckDatagram(idNACK, gapRecords)
		if _, err := s.socket.WriteToUDP(datagram, s.addr); err != nil {
			s.log.Warnw("failed to send nack", "error", err)
		}
	}
}

// handleFrame applies the §4.8 reliability filters, feeds compound
// frames to the collector, then delivers whole frames upward.
func (s *Session) handleFrame(frame Frame) {
	if frame.Reliability.IsReliable() && !s.markReliableSeen(frame.ReliableIndex) {
		return // duplicate reliable-index
	}

	if frame.Reliability.IsSequenced() && !frame.Reliability.IsOrdered() {
		if !s.checkSequenceFresh(frame.SequenceIndex) {
			return // stale sequenced frame
		}
	}

	if frame.Reliability.IsOrdered() {
		channel := s.orderChannels[frame.OrderChannel]
		for _, ready := range channel.receive(frame) {
			s.deliverFrame(ready)
		}
		return
	}

	s.deliverFrame(frame)
}

// deliverFrame feeds compound frames to the collector and passes
// whole frames to the upper layer.
func (s *Session) deliverFrame(frame Frame) {
	if frame.IsCompound {
		assembled, complete := s.compound.Insert(frame)
		if !complete {
			return
		}
		s.metrics.incCompoundsCompleted()
		frame = assembled
	}
	s.deliver(frame.Body)
}

func (s *Session) markReliableSeen(index uint32) bool {
	s.dedupMu.Lock()
	defer s.dedupMu.Unlock()
	if _, seen := s.seenReliable[index]; seen {
		return false
	}
	s.seenReliable[index] = struct{}{}
	return true
}

func (s *Session) checkSequenceFresh(index uint32) bool {
	s.seqMu.Lock()
	defer s.seqMu.Unlock()
	if s.sawSequence && index <= s.highestSequenceSeen {
		return false
	}
	s.highestSequenceSeen = index
	s.sawSequence = true
	return true
}
