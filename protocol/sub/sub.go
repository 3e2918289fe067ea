// Package sub implements the SUB pattern: maintain a trie of subscription
// prefixes and, on receive, deliver only messages whose body carries a
// subscribed prefix.
package sub

import (
	"github.com/joeycumines/scalesock/message"
	"github.com/joeycumines/scalesock/pipe"
	"github.com/joeycumines/scalesock/policy"
	"github.com/joeycumines/scalesock/protocol"
)

// Core implements protocol.Core for SUB.
type Core struct {
	fq   policy.FairQueue
	trie *policy.SubscriptionTrie
	inQ  []message.Message
}

// New constructs an empty SUB core with no subscriptions (matches
// nothing until Subscribe is called).
func New() *Core {
	return &Core{trie: policy.NewSubscriptionTrie()}
}

func (c *Core) AddPipe(p *pipe.Pipe) error {
	c.fq.Add(p)
	return nil
}

func (c *Core) RmPipe(p *pipe.Pipe) {
	c.fq.Remove(p)
}

func (c *Core) In(p *pipe.Pipe) {
	for {
		msg, res, err := p.Recv()
		if err != nil || res != pipe.Recv {
			return
		}
		if c.trie.Match(msg.Body()) {
			c.inQ = append(c.inQ, msg)
		} else {
			msg.Release()
		}
	}
}

func (c *Core) Out(p *pipe.Pipe) {}

// Send always fails: SUB never sends application messages (subscription
// edits travel through SetOption, not Send).
func (c *Core) Send(msg message.Message) bool {
	msg.Release()
	return false
}

func (c *Core) Recv() (message.Message, bool) {
	if len(c.inQ) == 0 {
		return message.Message{}, false
	}
	msg := c.inQ[0]
	c.inQ = c.inQ[1:]
	return msg, true
}

func (c *Core) Flags() protocol.Flags {
	if len(c.inQ) > 0 {
		return protocol.CanRecv
	}
	return 0
}

// Recognized option names.
const (
	OptSubscribe   = "SUB_SUBSCRIBE"
	OptUnsubscribe = "SUB_UNSUBSCRIBE"
)

func (c *Core) SetOption(name string, value any) error {
	switch name {
	case OptSubscribe:
		c.trie.Subscribe(toBytes(value))
		return nil
	case OptUnsubscribe:
		c.trie.Unsubscribe(toBytes(value))
		return nil
	default:
		return &protocol.ErrUnknownOption{Name: name}
	}
}

func (c *Core) GetOption(name string) (any, error) {
	return nil, &protocol.ErrUnknownOption{Name: name}
}

func (c *Core) Destroy() {}

func toBytes(value any) []byte {
	switch v := value.(type) {
	case []byte:
		return v
	case string:
		return []byte(v)
	default:
		return nil
	}
}
