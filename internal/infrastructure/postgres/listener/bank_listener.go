package listener

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/lib/pq"
)

const (
	channelName       = "linked_bank_accounts_changed"
	reconnectInterval = 5 * time.Second
)

// BankChange is the payload published by the linked_bank_accounts trigger.
type BankChange struct {
	UserID string `json:"user_id"`
}

// Invalidator drops cached bank lists.
type Invalidator interface {
	Invalidate(userID string)
	InvalidateAll()
}

// BankListener keeps per-instance bank list caches coherent by listening
// for inserts made through any instance.
type BankListener struct {
	connStr     string
	invalidator Invalidator
	shutdownCh  chan struct{}
	done        chan struct{}
}

func NewBankListener(connStr string, invalidator Invalidator) *BankListener {
	return &BankListener{
		connStr:     connStr,
		invalidator: invalidator,
		shutdownCh:  make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Start begins listening in a background goroutine.
func (l *BankListener) Start(ctx context.Context) {
	go l.listen(ctx)
	log.Println("Bank change listener started")
}

func (l *BankListener) Stop() {
	close(l.shutdownCh)
	<-l.done
	log.Println("Bank change listener stopped")
}

func (l *BankListener) listen(ctx context.Context) {
	defer close(l.done)

	for {
		select {
		case <-l.shutdownCh:
			return
		case <-ctx.Done():
			return
		default:
			l.connectAndListen(ctx)
		}

		select {
		case <-l.shutdownCh:
			return
		case <-ctx.Done():
			return
		case <-time.After(reconnectInterval):
			log.Println("Reconnecting to PostgreSQL for bank change notifications...")
		}
	}
}

func (l *BankListener) connectAndListen(ctx context.Context) {
	listener := pq.NewListener(l.connStr, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnected:
			log.Println("Connected to PostgreSQL notification channel")
		case pq.ListenerEventDisconnected:
			log.Printf("Disconnected from PostgreSQL notification channel: %v", err)
		case pq.ListenerEventReconnected:
			log.Println("Reconnected to PostgreSQL notification channel")
		case pq.ListenerEventConnectionAttemptFailed:
			log.Printf("Connection attempt failed: %v", err)
		}
	})
	defer listener.Close()

	if !l.subscribe(listener) {
		return
	}

	for {
		select {
		case <-l.shutdownCh:
			return
		case <-ctx.Done():
			return
		case notification := <-listener.Notify:
			if notification == nil {
				// connection lost; changes made meanwhile are never delivered
				l.invalidator.InvalidateAll()
				return
			}
			l.handleNotification(notification)
		case <-time.After(90 * time.Second):
			go func() {
				if err := listener.Ping(); err != nil {
					log.Printf("Listener ping failed: %v", err)
				}
			}()
		}
	}
}

type channelListener interface {
	Listen(channel string) error
}

// subscribe starts LISTEN and then clears every cached list, since inserts
// committed before the subscription took effect are never notified.
func (l *BankListener) subscribe(listener channelListener) bool {
	if err := listener.Listen(channelName); err != nil {
		log.Printf("Failed to listen on channel %s: %v", channelName, err)
		return false
	}

	l.invalidator.InvalidateAll()
	log.Printf("Listening on channel: %s", channelName)
	return true
}

func (l *BankListener) handleNotification(notification *pq.Notification) {
	var payload BankChange
	if err := json.Unmarshal([]byte(notification.Extra), &payload); err != nil {
		log.Printf("Failed to parse bank change payload: %v", err)
		return
	}
	if payload.UserID == "" {
		return
	}

	l.invalidator.Invalidate(payload.UserID)
}
