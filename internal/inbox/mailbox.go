package inbox

import (
	"crypto/tls"
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"prospector_backend/platform/config"
)

const (
	defaultMailbox = "INBOX"
	commandTimeout = 30 * time.Second
)

// RawMessage is one unseen message with its full RFC 822 source.
type RawMessage struct {
	UID  uint32
	Data []byte
}

// Mailbox is an open session on the reply mailbox.
type Mailbox interface {
	FetchUnseen() ([]RawMessage, error)
	MarkSeen(uids []uint32) error
	Close() error
}

// Dialer opens a new mailbox session.
type Dialer func() (Mailbox, error)

type imapMailbox struct {
	c *client.Client
}

// IMAPDialer returns a Dialer that logs in over implicit TLS and selects the configured mailbox.
func IMAPDialer(cfg config.IMAPConfig) Dialer {
	return func() (Mailbox, error) {
		addr := fmt.Sprintf("%s:%d", cfg.GetIMAPHost(), cfg.GetIMAPPort())
		c, err := client.DialTLS(addr, &tls.Config{ServerName: cfg.GetIMAPHost()})
		if err != nil {
			return nil, fmt.Errorf("dial imap %s: %w", addr, err)
		}
		c.Timeout = commandTimeout

		if err := c.Login(cfg.GetIMAPUsername(), cfg.GetIMAPPassword()); err != nil {
			_ = c.Logout()
			return nil, fmt.Errorf("imap login: %w", err)
		}

		mailbox := cfg.GetIMAPMailbox()
		if mailbox == "" {
			mailbox = defaultMailbox
		}
		if _, err := c.Select(mailbox, false); err != nil {
			_ = c.Logout()
			return nil, fmt.Errorf("select mailbox %s: %w", mailbox, err)
		}
		return &imapMailbox{c: c}, nil
	}
}

func (m *imapMailbox) FetchUnseen() ([]RawMessage, error) {
	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	uids, err := m.c.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("search unseen: %w", err)
	}
	if len(uids) == 0 {
		return nil, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)

	// Peek so a message that fails to route stays unseen for the next poll.
	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- m.c.UidFetch(seqset, items, messages)
	}()

	out := make([]RawMessage, 0, len(uids))
	for msg := range messages {
		literal := msg.GetBody(section)
		if literal == nil {
			continue
		}
		data, err := io.ReadAll(literal)
		if err != nil {
			continue
		}
		out = append(out, RawMessage{UID: msg.Uid, Data: data})
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("fetch unseen: %w", err)
	}
	return out, nil
}

func (m *imapMailbox) MarkSeen(uids []uint32) error {
	if len(uids) == 0 {
		return nil
	}
	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)
	item := imap.FormatFlagsOp(imap.AddFlags, true)
	return m.c.UidStore(seqset, item, []interface{}{imap.SeenFlag}, nil)
}

func (m *imapMailbox) Close() error {
	return m.c.Logout()
}
