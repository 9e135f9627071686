package torus

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/modelnet-sim/modelnet/kernel"
	"github.com/modelnet-sim/modelnet/netsim"
)

// generate is packet_generate: route once, stamp the packet id and travel
// start time, then fan out one SEND event per chunk at a small jittered
// offset. A full VC buffer at this point is a hard configuration error -
// this model applies no injection throttling.
func (s *NodeState) generate(bf *kernel.ReverseBits, msg *Message, lp kernel.LP, host kernel.Host) {
	nextHop, dim, dir, err := s.route(msg.DestLP)
	if err != nil {
		kernel.Fatal(lp, "torus: routing failure at generate: %v", err)
		return
	}
	msg.SavedSrcDim = dim
	msg.SavedSrcDir = dir
	msg.TravelStartTime = host.Now(lp)
	msg.PacketID = lp.GID() + s.params.NLP*s.packetCounter
	msg.HopCount = 0
	s.packetCounter++

	msg.NumChunks = numChunks(msg.PacketSize, s.params.ChunkSize)
	s.trace(lp, msg, "generated dest=%d final_dest=%d", nextHop, msg.FinalDestGID)

	idx := dirIndex(dim, dir)
	for j := 0; j < msg.NumChunks; j++ {
		if s.buffer[idx][0] >= s.params.BufferSize {
			kernel.Fatal(lp, "torus: buffer overflow at generate (dir=%d dim=%d level=%d dest=%d)",
				dir, dim, s.buffer[idx][0], msg.DestLP)
			return
		}
		ts := float64(j) + lp.RNG().Exponential(float64(meanInterval)/200)

		chunk := *msg
		chunk.Type = Send
		chunk.SourceDim = dim
		chunk.SourceDirection = dir
		chunk.NextStop = nextHop
		chunk.ChunkID = j

		host.SendSelf(lp, ts, netsim.NewPassMessage("torus", &chunk))
	}

	c := s.statsTable.Find(msg.Category)
	c.SendCount++
	c.SendBytes += int64(msg.PacketSize)
	c.SendTime += (1 / s.params.LinkBandwidth) * float64(msg.PacketSize)
}

func (s *NodeState) generateRC(bf *kernel.ReverseBits, msg *Message, lp kernel.LP) {
	s.packetCounter--
	for i := 0; i < msg.NumChunks; i++ {
		lp.RNG().ReverseUnif()
	}
	c := s.statsTable.Find(msg.Category)
	c.SendCount--
	c.SendBytes -= int64(msg.PacketSize)
	c.SendTime -= (1 / s.params.LinkBandwidth) * float64(msg.PacketSize)
}

// send is packet_send: re-route from the current node (destination in the
// message is the fixed final hop; every intermediate hop re-routes from
// where it now sits), reserve a buffer slot if one is free, and forward an
// ARRIVAL to the next hop. The last chunk of the message additionally
// delivers the self payload, exactly once, to whoever handed this chunk to
// the current node.
func (s *NodeState) send(bf *kernel.ReverseBits, msg *Message, lp kernel.LP, host kernel.Host) {
	nextHop, dim, dir, err := s.route(msg.DestLP)
	if err != nil {
		kernel.Fatal(lp, "torus: routing failure at send: %v", err)
		return
	}
	idx := dirIndex(dim, dir)

	if s.buffer[idx][0] >= s.params.BufferSize {
		kernel.Fatal(lp, "torus: buffer overflow at send (dir=%d dim=%d level=%d dest=%d)",
			dir, dim, s.buffer[idx][0], msg.DestLP)
		return
	}
	bf.C2 = true
	msg.SavedSrcDim = dim
	msg.SavedSrcDir = dir
	msg.SavedAvailableTime = s.nextLinkAvailable[idx][0]

	ts := lp.RNG().Exponential(s.params.HeadDelay/200) + s.params.HeadDelay
	s.nextLinkAvailable[idx][0] = math.Max(s.nextLinkAvailable[idx][0], host.Now(lp)) + ts

	arrival := *msg
	arrival.Type = Arrival
	arrival.SourceDim = dim
	arrival.SourceDirection = dir
	arrival.NextStop = nextHop
	arrival.SenderLP = lp.GID()
	// The local event is only ever carried by the chunk that generated it;
	// the continuation going to the next hop must not deliver it again.
	arrival.SelfEventSize = 0
	arrival.Self = nil

	delay := s.nextLinkAvailable[idx][0] - host.Now(lp)
	s.trace(lp, msg, "chunk %d sent to %d after %f", msg.ChunkID, nextHop, delay)
	host.Send(lp, nextHop, delay, netsim.NewPassMessage("torus", &arrival))

	s.buffer[idx][0]++

	if msg.ChunkID == msg.NumChunks-1 {
		bf.C1 = true
		if msg.SelfEventSize > 0 {
			selfTs := (1 / s.params.LinkBandwidth) * float64(msg.SelfEventSize)
			host.Send(lp, msg.SenderLP, selfTs, msg.Self)
		}
	}
}

func (s *NodeState) sendRC(bf *kernel.ReverseBits, msg *Message, lp kernel.LP) {
	if bf.C2 {
		idx := dirIndex(msg.SavedSrcDim, msg.SavedSrcDir)
		s.nextLinkAvailable[idx][0] = msg.SavedAvailableTime
		s.buffer[idx][0]--
		lp.RNG().ReverseUnif()
	}
}

// arrive is packet_arrive: send a credit back upstream, count the hop, and
// either finish the packet (if this is the final torus hop and last chunk)
// or re-emit a SEND to self to continue toward the next hop.
func (s *NodeState) arrive(bf *kernel.ReverseBits, msg *Message, lp kernel.LP, host kernel.Host) {
	s.creditSend(bf, msg, lp, host)

	msg.HopCount++
	ts := 0.1 + lp.RNG().Exponential(float64(meanInterval)/200)
	s.trace(lp, msg, "arrived at %d final hop=%v", lp.GID(), lp.GID() == msg.DestLP)

	if lp.GID() == msg.DestLP {
		if msg.ChunkID == msg.NumChunks-1 {
			bf.C2 = true
			c := s.statsTable.Find(msg.Category)
			c.RecvCount++
			c.RecvBytes += int64(msg.PacketSize)
			c.RecvTime += host.Now(lp) - msg.TravelStartTime

			s.finishedPackets++
			latency := host.Now(lp) - msg.TravelStartTime
			s.totalLatency += latency
			s.totalHops += int64(msg.HopCount)

			if s.maxLatency < latency {
				bf.C3 = true
				msg.SavedMaxLatency = s.maxLatency
				s.maxLatency = latency
			}

			if msg.RemoteEventSize > 0 {
				deliverTs := (1 / s.params.LinkBandwidth) * float64(msg.RemoteEventSize)
				if msg.IsPull {
					// A pull re-enters the scheduler as a brand new request
					// (model_net_event's dispatch to the base LP), carrying
					// the already-received remote payload onward as the new
					// request's remote event.
					req := &netsim.Request{
						Dest:            msg.SenderLP,
						FinalDest:       msg.SenderLP,
						Sender:          lp.GID(),
						Category:        msg.Category,
						MsgSize:         msg.PullSize,
						RemoteEventSize: msg.RemoteEventSize,
					}
					host.SendSelf(lp, deliverTs, netsim.NewRequestMessage("torus", req, msg.Remote, nil))
				} else {
					host.Send(lp, msg.FinalDestGID, deliverTs, msg.Remote)
				}
			}
		}
		return
	}

	resend := *msg
	resend.Type = Send
	host.SendSelf(lp, ts, netsim.NewPassMessage("torus", &resend))
}

func (s *NodeState) arriveRC(bf *kernel.ReverseBits, msg *Message, lp kernel.LP, host kernel.Host) {
	lp.RNG().ReverseUnif() // arrive's own ts draw
	lp.RNG().ReverseUnif() // credit_send's ts draw

	idx := dirIndex(msg.SourceDim, msg.SourceDirection)
	s.nextCreditAvailable[idx][0] = msg.SavedAvailableTime

	if bf.C2 {
		c := s.statsTable.Find(msg.Category)
		c.RecvCount--
		c.RecvBytes -= int64(msg.PacketSize)
		c.RecvTime -= host.Now(lp) - msg.TravelStartTime
		s.finishedPackets--
		s.totalLatency -= host.Now(lp) - msg.TravelStartTime
		s.totalHops -= int64(msg.HopCount)
	}
	if bf.C3 {
		s.maxLatency = msg.SavedMaxLatency
	}
	msg.HopCount--
}

// creditSend is credit_send: always fires on arrival, independent of
// whether this is the final hop, to return one buffer slot of credit to
// whoever sent this chunk.
func (s *NodeState) creditSend(bf *kernel.ReverseBits, msg *Message, lp kernel.LP, host kernel.Host) {
	idx := dirIndex(msg.SourceDim, msg.SourceDirection)
	msg.SavedAvailableTime = s.nextCreditAvailable[idx][0]
	ts := s.params.CreditDelay + lp.RNG().Exponential(s.params.CreditDelay/1000)
	s.nextCreditAvailable[idx][0] = math.Max(s.nextCreditAvailable[idx][0], host.Now(lp)) + ts

	delay := s.nextCreditAvailable[idx][0] - host.Now(lp)
	host.Send(lp, msg.SenderLP, delay, netsim.NewPassMessage("torus", &Message{
		Type:            Credit,
		SourceDim:       msg.SourceDim,
		SourceDirection: msg.SourceDirection,
	}))
}

// credit is packet_buffer_process: release one reserved buffer slot on the
// link the credited chunk traveled.
func (s *NodeState) credit(bf *kernel.ReverseBits, msg *Message, lp kernel.LP) {
	idx := dirIndex(msg.SourceDim, msg.SourceDirection)
	s.buffer[idx][0]--
}

func (s *NodeState) creditRC(bf *kernel.ReverseBits, msg *Message, lp kernel.LP) {
	idx := dirIndex(msg.SourceDim, msg.SourceDirection)
	s.buffer[idx][0]++
}

func numChunks(packetSize uint64, chunkSize int) int {
	n := packetSize / uint64(chunkSize)
	if packetSize%uint64(chunkSize) != 0 {
		n++
	}
	return int(n)
}

// trace logs one packet's journey at Debug level when its id matches the
// configured TraceID - torus.c's TRACE macro turned into a
// runtime-configurable hook instead of a recompiled constant.
func (s *NodeState) trace(lp kernel.LP, msg *Message, format string, args ...any) {
	if s.params.TraceID == 0 || msg.PacketID != s.params.TraceID {
		return
	}
	logrus.Debugf("torus: lp=%d packet=%d "+format, append([]any{lp.GID(), msg.PacketID}, args...)...)
}
