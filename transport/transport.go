// Copyright 2024 The burn-hydra Authors
// This file is part of the burn-hydra library.
//
// The burn-hydra library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The burn-hydra library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the burn-hydra library. If not, see <http://www.gnu.org/licenses/>.

// Package transport moves bignums between the ranks of a burn job.
//
// The wire format is a sequence of little-endian 64-bit limbs, eight
// bytes each; the limb count is implicit in the frame length and a single
// message tag is assumed. Point-to-point exchange is synchronous: a send
// completes only once the peer has posted the matching receive. On top of
// the raw link layer the package provides the timed send/receive
// envelope and the collective gather used by the signature path.
package transport

import "errors"

var (
	errBadPeer   = errors.New("transport: peer rank out of range")
	errSelfSend  = errors.New("transport: rank cannot message itself")
	errNetClosed = errors.New("transport: network closed")
)

// Conn is one rank's endpoint into the job's network. Frames are opaque
// byte slices owned by the receiver after delivery.
type Conn interface {
	// Rank returns this endpoint's rank.
	Rank() int
	// Size returns the number of ranks in the job.
	Size() int
	// Send delivers a frame to peer, blocking until it is received.
	Send(peer int, frame []byte) error
	// Recv blocks until a frame from peer arrives and returns it.
	Recv(peer int) ([]byte, error)
}

// Network is an in-process fabric of synchronous links between ranks.
// Each ordered pair of ranks gets a dedicated rendezvous channel, which
// reproduces the synchronous point-to-point semantics the burn protocol
// is scheduled around.
type Network struct {
	size  int
	links [][]chan []byte
}

// NewNetwork creates a fabric connecting size ranks.
func NewNetwork(size int) *Network {
	n := &Network{size: size, links: make([][]chan []byte, size)}
	for from := range n.links {
		n.links[from] = make([]chan []byte, size)
		for to := range n.links[from] {
			if from != to {
				n.links[from][to] = make(chan []byte)
			}
		}
	}
	return n
}

// Size returns the number of ranks in the fabric.
func (n *Network) Size() int { return n.size }

// Conn returns the endpoint for the given rank.
func (n *Network) Conn(rank int) Conn {
	if rank < 0 || rank >= n.size {
		panic(errBadPeer)
	}
	return &conn{net: n, rank: rank}
}

type conn struct {
	net  *Network
	rank int
}

func (c *conn) Rank() int { return c.rank }
func (c *conn) Size() int { return c.net.size }

func (c *conn) Send(peer int, frame []byte) error {
	if peer < 0 || peer >= c.net.size {
		return errBadPeer
	}
	if peer == c.rank {
		return errSelfSend
	}
	c.net.links[c.rank][peer] <- frame
	return nil
}

func (c *conn) Recv(peer int) ([]byte, error) {
	if peer < 0 || peer >= c.net.size {
		return nil, errBadPeer
	}
	if peer == c.rank {
		return nil, errSelfSend
	}
	frame, ok := <-c.net.links[peer][c.rank]
	if !ok {
		return nil, errNetClosed
	}
	return frame, nil
}
