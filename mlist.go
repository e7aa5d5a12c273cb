package main

import (
	"github.com/hashicorp/memberlist"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// MemberList is a wrapper around the memberlist package
type MemberList struct {
	List *memberlist.Memberlist
}

func CreateMemberList(cfg ClusterConfig, processMsg func(b []byte)) (*MemberList, error) {
	config := memberlist.DefaultLocalConfig()
	config.BindAddr = cfg.BindAddr
	config.BindPort = cfg.BindPort
	config.AdvertisePort = cfg.BindPort
	config.Name = cfg.Name
	config.Delegate = &MemberListDelegate{
		ProcessMsg: processMsg,
	}
	config.LogOutput = logrus.StandardLogger().WriterLevel(logrus.DebugLevel)

	list, err := memberlist.Create(config)
	if err != nil {
		return nil, errors.Wrap(err, "create memberlist")
	}

	if len(cfg.Seeds) > 0 {
		if _, err := list.Join(cfg.Seeds); err != nil {
			list.Shutdown()
			return nil, errors.Wrapf(err, "join %v", cfg.Seeds)
		}
	}

	return &MemberList{List: list}, nil
}

func (m *MemberList) FindNode(name string) *memberlist.Node {
	for _, member := range m.List.Members() {
		if member.Name == name || PadName(member.Name) == name {
			return member
		}
	}
	return nil
}

// OtherMembers returns every live member except the local one.
func (m *MemberList) OtherMembers() []*memberlist.Node {
	local := m.List.LocalNode().Name
	var others []*memberlist.Node
	for _, member := range m.List.Members() {
		if member.Name != local {
			others = append(others, member)
		}
	}
	return others
}

func (m *MemberList) SendTCP(msg []byte, name string) error {
	node := m.FindNode(name)
	if node == nil {
		return errors.Errorf("no member named %s", name)
	}
	return m.List.SendReliable(node, msg)
}

func (m *MemberList) Shutdown() error {
	if err := m.List.Leave(DefaultTimeout); err != nil {
		logrus.Warnf("Leaving cluster: %v", err)
	}
	return m.List.Shutdown()
}

type MemberListDelegate struct {
	ProcessMsg func([]byte)
}

func (d *MemberListDelegate) NodeMeta(limit int) []byte {
	return []byte{}
}

// NotifyMsg hands a copy of b to ProcessMsg on its own goroutine; memberlist
// reuses b after we return and must not be blocked by replies we send.
func (d *MemberListDelegate) NotifyMsg(b []byte) {
	msg := make([]byte, len(b))
	copy(msg, b)
	go d.ProcessMsg(msg)
}

func (d *MemberListDelegate) GetBroadcasts(overhead, limit int) [][]byte {
	return nil
}

func (d *MemberListDelegate) LocalState(join bool) []byte {
	return []byte{}
}

func (d *MemberListDelegate) MergeRemoteState(buf []byte, join bool) {}

// PadName left pads name with zeros to the 8 byte sender field.
func PadName(name string) string {
	for len(name) < MaxNodeNameLen {
		name = "0" + name
	}
	return name
}
