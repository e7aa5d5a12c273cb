package main

import (
	"encoding/json"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Types of messages
const (
	REQUEST_CONFIG = iota
	RESPONSE_CONFIG
	REQUEST_COUNTS
	RESPONSE_COUNTS
)

// A message is one type byte, the 8 byte padded sender name and the payload.
const msgHeaderLen = 1 + MaxNodeNameLen

type CountsRequestMsg struct {
	ID uint64 `json:"id"`
}

type CountsResponseMsg struct {
	ID      uint64  `json:"id"`
	Entries []Entry `json:"entries"`
}

func EncodeMsg(mType uint8, sender string, payload []byte) []byte {
	b := make([]byte, 0, msgHeaderLen+len(payload))
	b = append(b, mType)
	b = append(b, []byte(PadName(sender))...)
	return append(b, payload...)
}

func DecodeMsg(b []byte) (mType uint8, sender string, payload []byte, err error) {
	if len(b) < msgHeaderLen {
		return 0, "", nil, errors.Errorf("short message of %d bytes", len(b))
	}
	return b[0], string(b[1:msgHeaderLen]), b[msgHeaderLen:], nil
}

func (n *ClusterNode) ProcessMsg(b []byte) {
	mType, sender, msg, err := DecodeMsg(b)
	if err != nil {
		log.Warnf("Dropping message: %v", err)
		return
	}
	switch mType {
	case REQUEST_CONFIG:
		n.processRequestConfig(sender)
	case RESPONSE_CONFIG:
		n.processResponseConfig(msg)
	case REQUEST_COUNTS:
		n.processRequestCounts(sender, msg)
	case RESPONSE_COUNTS:
		n.processResponseCounts(msg)
	default:
		log.Infof("Unknown message type %d", mType)
	}
}

func (n *ClusterNode) RequestConfig(to string) error {
	log.Infof("Requesting config from %s", to)
	return n.MList.SendTCP(EncodeMsg(REQUEST_CONFIG, n.Name(), nil), to)
}

func (n *ClusterNode) processRequestConfig(sender string) {
	log.Debugf("Sending config to %s", sender)
	b := EncodeMsg(RESPONSE_CONFIG, n.Name(), n.Config.SerializeConfig())
	if err := n.MList.SendTCP(b, sender); err != nil {
		log.Errorf("Sending config to %s: %v", sender, err)
	}
}

func (n *ClusterNode) processResponseConfig(msg []byte) {
	cfg, err := DeserializeConfig(msg)
	if err != nil {
		log.Errorf("Bad config response: %v", err)
		return
	}
	select {
	case n.configCh <- cfg:
	default:
	}
}

func (n *ClusterNode) RequestCounts(id uint64, to string) error {
	reqMsg, err := json.Marshal(CountsRequestMsg{ID: id})
	if err != nil {
		return err
	}
	log.Debugf("Requesting counts from %s", to)
	return n.MList.SendTCP(EncodeMsg(REQUEST_COUNTS, n.Name(), reqMsg), to)
}

func (n *ClusterNode) processRequestCounts(sender string, msg []byte) {
	var reqMsg CountsRequestMsg
	if err := json.Unmarshal(msg, &reqMsg); err != nil {
		log.Errorf("Bad counts request from %s: %v", sender, err)
		return
	}

	resp := CountsResponseMsg{ID: reqMsg.ID}
	if engine := n.engine(); engine != nil {
		resp.Entries = engine.Frequent(0)
	}
	respMsg, err := json.Marshal(resp)
	if err != nil {
		log.Errorf("Encoding counts for %s: %v", sender, err)
		return
	}
	log.Debugf("Sending %d counts to %s", len(resp.Entries), sender)
	if err := n.MList.SendTCP(EncodeMsg(RESPONSE_COUNTS, n.Name(), respMsg), sender); err != nil {
		log.Errorf("Sending counts to %s: %v", sender, err)
	}
}

func (n *ClusterNode) processResponseCounts(msg []byte) {
	var respMsg CountsResponseMsg
	if err := json.Unmarshal(msg, &respMsg); err != nil {
		log.Errorf("Bad counts response: %v", err)
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	ch, ok := n.pending[respMsg.ID]
	if !ok {
		log.Debugf("Late counts response for request %d", respMsg.ID)
		return
	}
	select {
	case ch <- respMsg.Entries:
	default:
		log.Warnf("Dropping duplicate counts response for request %d", respMsg.ID)
	}
}
