package e2e

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type testNotifySuite struct {
	BaseWsSuite
}

func TestNotifySuite(t *testing.T) {
	suite.Run(t, &testNotifySuite{})
}

func (s *testNotifySuite) TestRoutingFlow() {
	userID := uuid.NewString()
	managerID := uuid.NewString()
	var user, manager *Client

	// --- STEP 0: HANDSHAKE ---
	s.Run("Step 0: Connect and receive acknowledgement", func() {
		user = s.Dial("Connect user", userID, "")
		manager = s.Dial("Connect manager", managerID, "manager")

		for _, client := range []*Client{user, manager} {
			frame, err := client.NextOfType("connection_established", 5*time.Second)
			s.Require().NoError(err)
			s.Require().NotEmpty(frame["timestamp"])
		}
	})

	// --- STEP 1: PING / PONG ---
	s.Run("Step 1: Literal ping is answered with pong", func() {
		s.Require().NoError(user.SendText("ping"))
		for {
			frame, err := user.Next(5 * time.Second)
			s.Require().NoError(err)
			if frame["raw"] == "pong" {
				break
			}
		}
	})

	// --- STEP 2: TARGETED DELIVERY ---
	s.Run("Step 2: Identity and role targets reach their recipients", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		code := s.Notify(ctx,
			map[string]any{"kind": "identity", "identity": userID},
			map[string]any{"type": "status_update", "request_id": 1, "status": "approved"})
		s.Require().Equal(http.StatusAccepted, code)

		frame, err := user.NextOfType("status_update", 5*time.Second)
		s.Require().NoError(err)
		s.Require().Equal("approved", frame["status"])

		code = s.Notify(ctx,
			map[string]any{"kind": "role", "role": "MANAGER"},
			map[string]any{"type": "approval_assigned", "request_id": 1})
		s.Require().Equal(http.StatusAccepted, code)

		frame, err = manager.NextOfType("approval_assigned", 5*time.Second)
		s.Require().NoError(err)
		s.Require().EqualValues(1, frame["request_id"])
	})

	// --- STEP 3: INVALID INPUT ---
	s.Run("Step 3: Incomplete target is rejected", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		code := s.Notify(ctx,
			map[string]any{"kind": "identity"},
			map[string]any{"type": "status_update"})
		s.Require().Equal(http.StatusBadRequest, code)
	})
}
