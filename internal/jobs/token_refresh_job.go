package job

import (
	"context"
	"log/slog"
	"sync"
	"time"

	config "github.com/postdeck/calendar-engine/configs"
	"github.com/postdeck/calendar-engine/internal/models"
	"github.com/postdeck/calendar-engine/internal/repository"
	"github.com/postdeck/calendar-engine/pkg/utils"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

type TokenRefreshJob struct {
	cfg config.Config
	sr  repository.SocialAccountRepository
}

func NewTokenRefreshJob(cfg config.Config, sr repository.SocialAccountRepository) *TokenRefreshJob {
	return &TokenRefreshJob{cfg: cfg, sr: sr}
}

// RefreshTokens renews platform tokens expiring within the next half
// hour so previews and the publish handoff never hit a dead token.
func (c *TokenRefreshJob) RefreshTokens() {
	ctx := context.Background()

	currentTime := time.Now()
	timeIn30Minutes := currentTime.Add(30 * time.Minute)

	accounts, err := c.sr.ListByTimeInterval(ctx, currentTime, timeIn30Minutes)
	if err != nil {
		slog.Info(err.Error())
		return
	}

	var wg sync.WaitGroup

	concurrencyLimit := 10
	semaphore := make(chan struct{}, concurrencyLimit)

	for _, acc := range accounts {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(acc *models.SocialAccount) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if err := c.refreshAccount(ctx, acc); err != nil {
				slog.Info("Unable to refresh token", "platform", acc.Platform, "account", acc.ID)
			}
		}(acc)
	}

	wg.Wait()
}

func (c *TokenRefreshJob) refreshAccount(ctx context.Context, acc *models.SocialAccount) error {
	conf := &oauth2.Config{
		ClientID:     c.cfg.GoogleClientID,
		ClientSecret: c.cfg.GoogleClientSecret,
		Endpoint:     google.Endpoint,
	}

	refreshToken, err := utils.Decrypt(acc.RefreshToken, []byte(c.cfg.EncryptionKey))
	if err != nil {
		return err
	}

	tokenSource := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := tokenSource.Token()
	if err != nil {
		return err
	}

	encryptedAccess, err := utils.Encrypt([]byte(token.AccessToken), []byte(c.cfg.EncryptionKey))
	if err != nil {
		return err
	}

	encryptedRefresh := acc.RefreshToken
	if token.RefreshToken != "" {
		encryptedRefresh, err = utils.Encrypt([]byte(token.RefreshToken), []byte(c.cfg.EncryptionKey))
		if err != nil {
			return err
		}
	}

	return c.sr.SetToken(ctx, acc.ID, encryptedAccess, encryptedRefresh, token.Expiry)
}
