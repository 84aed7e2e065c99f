package client

import (
	"context"

	"github.com/databricks/databricks-sdk-go"
	"github.com/de-tools/lakespend/pkg/models/domain"
	"github.com/rs/zerolog"
)

type ConnectionChecker interface {
	Check(ctx context.Context) domain.ConnectionInfo
}

type connectionChecker struct {
	host    string
	me      func(ctx context.Context) (string, error)
	account bool
}

func NewConnectionChecker(host string, me func(ctx context.Context) (string, error), account bool) ConnectionChecker {
	return &connectionChecker{host: host, me: me, account: account}
}

func NewWorkspaceConnectionChecker(w *databricks.WorkspaceClient, account bool) ConnectionChecker {
	return NewConnectionChecker(w.Config.Host, func(ctx context.Context) (string, error) {
		user, err := w.CurrentUser.Me(ctx)
		if err != nil {
			return "", err
		}
		return user.UserName, nil
	}, account)
}

// Check resolves the current user to verify connectivity.
func (c *connectionChecker) Check(ctx context.Context) domain.ConnectionInfo {
	info := domain.ConnectionInfo{Host: c.host, AccountConfigured: c.account}

	user, err := c.me(ctx)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("host", c.host).Msg("databricks connection test failed")
		info.Error = err.Error()
		return info
	}

	info.User = user
	info.Connected = true
	return info
}
