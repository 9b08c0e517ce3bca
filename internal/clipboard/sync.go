package clipboard

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/uniclip/uniclipboard/internal/common"
	"github.com/uniclip/uniclipboard/internal/cryptox"
	"github.com/uniclip/uniclipboard/internal/encryption"
	"github.com/uniclip/uniclipboard/internal/logging"
	"github.com/uniclip/uniclipboard/internal/models"
	"github.com/uniclip/uniclipboard/internal/network"
)

// OutboundSync ships locally captured snapshots to paired devices. Only
// snapshots originating from a local copy are emitted; anything the inbound
// path wrote is suppressed by the origin check.
type OutboundSync struct {
	session  *encryption.Session
	net      network.Port
	deviceID models.DeviceID
	log      logging.Logger
}

func NewOutboundSync(session *encryption.Session, net network.Port, deviceID models.DeviceID, log logging.Logger) *OutboundSync {
	return &OutboundSync{session: session, net: net, deviceID: deviceID, log: log}
}

// Push broadcasts snapshot to all peers. Origins other than LocalCapture
// are dropped without a send.
func (s *OutboundSync) Push(ctx context.Context, snapshot models.SystemClipboardSnapshot, origin Origin) error {
	if origin != OriginLocalCapture {
		s.log.Debug(ctx, "outbound suppressed", "origin", string(origin))
		return nil
	}

	mk, err := s.session.MasterKey()
	if err != nil {
		return err
	}
	plain, err := EncodeSnapshot(snapshot)
	if err != nil {
		return err
	}

	messageID := models.NewMessageID()
	sealed, err := cryptox.Encrypt(mk, plain, cryptox.NetClipboardAad(messageID))
	if err != nil {
		return fmt.Errorf("failed to encrypt outbound snapshot: %w", err)
	}
	ciphertext, err := json.Marshal(sealed)
	if err != nil {
		return fmt.Errorf("failed to encode outbound snapshot: %w", err)
	}

	msg := network.ClipboardMessage{
		MessageID:         messageID,
		OriginDeviceID:    s.deviceID,
		PayloadCiphertext: ciphertext,
	}
	if err := s.net.BroadcastClipboard(ctx, msg); err != nil {
		return fmt.Errorf("%w: broadcast failed: %v", common.ErrTransport, err)
	}
	return nil
}

// InboundSync applies snapshots received from peers to the local system
// clipboard, tagged RemotePush so the watcher does not echo them back out.
type InboundSync struct {
	session  *encryption.Session
	sysclip  SystemClipboardPort
	origin   ChangeOriginPort
	deviceID models.DeviceID
	log      logging.Logger
}

func NewInboundSync(session *encryption.Session, sysclip SystemClipboardPort, origin ChangeOriginPort, deviceID models.DeviceID, log logging.Logger) *InboundSync {
	return &InboundSync{session: session, sysclip: sysclip, origin: origin, deviceID: deviceID, log: log}
}

// Handle processes one inbound clipboard message.
func (s *InboundSync) Handle(ctx context.Context, msg network.ClipboardMessage) error {
	if msg.OriginDeviceID == s.deviceID {
		return nil
	}

	mk, err := s.session.MasterKey()
	if err != nil {
		return err
	}

	var sealed models.EncryptedBlob
	if err := json.Unmarshal(msg.PayloadCiphertext, &sealed); err != nil {
		return fmt.Errorf("%w: inbound payload for %s is unreadable", common.ErrCorruptedBlob, msg.MessageID)
	}
	plain, err := cryptox.Decrypt(mk, &sealed, cryptox.NetClipboardAad(msg.MessageID))
	if err != nil {
		return fmt.Errorf("failed to decrypt inbound snapshot %s: %w", msg.MessageID, err)
	}
	snapshot, err := DecodeSnapshot(plain)
	if err != nil {
		return err
	}

	// The origin marker must be visible before the clipboard changes so the
	// watcher observes them in order.
	s.origin.Publish(OriginRemotePush)
	if err := s.sysclip.WriteSnapshot(*snapshot); err != nil {
		return fmt.Errorf("failed to write inbound snapshot: %w", err)
	}
	s.log.Debug(ctx, "inbound snapshot applied", "message_id", msg.MessageID, "from", msg.OriginDeviceID)
	return nil
}
