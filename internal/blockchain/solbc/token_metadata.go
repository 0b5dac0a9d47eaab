// internal/blockchain/solbc/token_metadata.go
package solbc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-txcore/internal/cache"
)

const metadataKeyPrefix = "token-meta:"

// TokenMetadata хранит информацию о токене
type TokenMetadata struct {
	Mint      string    `json:"mint"`
	Decimals  uint8     `json:"decimals"`
	Symbol    string    `json:"symbol"`
	Name      string    `json:"name"`
	Source    string    `json:"source"` // "chain", "api", "known"
	UpdatedAt time.Time `json:"updatedAt"`
}

// DecimalsReader - часть RPC клиента, нужная резолверу.
type DecimalsReader interface {
	GetTokenDecimals(ctx context.Context, mint solana.PublicKey) (uint8, error)
}

// TokenMetadataResolver получает метаданные токенов через внедрённый ограниченный кэш.
type TokenMetadataResolver struct {
	client     DecimalsReader
	store      cache.Cache
	logger     *zap.Logger
	httpClient *http.Client
	apiURL     string
}

// tokenAPIResponse - ответ внешнего API метаданных
type tokenAPIResponse struct {
	Success bool `json:"success"`
	Token   struct {
		Symbol   string `json:"symbol"`
		Name     string `json:"name"`
		Decimals uint8  `json:"decimals"`
	} `json:"token"`
}

// NewTokenMetadataResolver создаёт резолвер. Пустой apiURL отключает обогащение из API.
func NewTokenMetadataResolver(client DecimalsReader, store cache.Cache, apiURL string, logger *zap.Logger) *TokenMetadataResolver {
	return &TokenMetadataResolver{
		client: client,
		store:  store,
		logger: logger.Named("token-metadata"),
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		apiURL: apiURL,
	}
}

// Resolve возвращает метаданные актива. Ошибки источников не фатальны:
// в худшем случае возвращается запись с одним адресом.
func (r *TokenMetadataResolver) Resolve(ctx context.Context, asset string) *TokenMetadata {
	// 1. Проверяем кэш
	if metadata, ok := r.getFromCache(ctx, asset); ok {
		return metadata
	}

	metadata := &TokenMetadata{Mint: asset}

	// 2. Известные токены не требуют сети
	if enrichFromKnownTokens(asset, metadata) {
		return metadata
	}

	mint, err := solana.PublicKeyFromBase58(asset)
	if err != nil {
		// не адрес, кэшировать нечего
		return metadata
	}

	// 3. On-chain данные
	if r.client != nil {
		decimals, err := r.client.GetTokenDecimals(ctx, mint)
		if err != nil {
			r.logger.Debug("failed to get on-chain metadata",
				zap.String("mint", asset),
				zap.Error(err))
		} else {
			metadata.Decimals = decimals
			metadata.Source = "chain"
		}
	}

	// 4. Пробуем обогатить данными из API
	if r.apiURL != "" {
		if err := r.enrichFromAPI(ctx, mint, metadata); err != nil {
			r.logger.Debug("failed to enrich metadata from API",
				zap.String("mint", asset),
				zap.Error(err))
		}
	}

	if metadata.Source == "" {
		// ничего не нашли; не кэшируем, чтобы повторить позже
		return metadata
	}

	metadata.UpdatedAt = time.Now().UTC()
	if err := r.store.Set(ctx, metadataKeyPrefix+asset, mustJSON(metadata)); err != nil {
		r.logger.Warn("failed to cache token metadata", zap.String("mint", asset), zap.Error(err))
	}

	r.logger.Debug("token metadata retrieved",
		zap.String("mint", asset),
		zap.Uint8("decimals", metadata.Decimals),
		zap.String("symbol", metadata.Symbol),
		zap.String("source", metadata.Source))

	return metadata
}

// Symbol возвращает символ актива или сам адрес, если символ неизвестен.
func (r *TokenMetadataResolver) Symbol(ctx context.Context, asset string) string {
	if md := r.Resolve(ctx, asset); md.Symbol != "" {
		return md.Symbol
	}
	return asset
}

func (r *TokenMetadataResolver) getFromCache(ctx context.Context, asset string) (*TokenMetadata, bool) {
	raw, ok, err := r.store.Get(ctx, metadataKeyPrefix+asset)
	if err != nil {
		r.logger.Debug("token metadata cache read failed", zap.String("mint", asset), zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var metadata TokenMetadata
	if err := json.Unmarshal(raw, &metadata); err != nil {
		return nil, false
	}
	return &metadata, true
}

// enrichFromAPI обогащает метаданные данными внешнего API
func (r *TokenMetadataResolver) enrichFromAPI(ctx context.Context, mint solana.PublicKey, metadata *TokenMetadata) error {
	url := fmt.Sprintf("%s/getToken?token=%s", r.apiURL, mint.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API returned status code: %d", resp.StatusCode)
	}

	var tokenInfo tokenAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenInfo); err != nil {
		return fmt.Errorf("failed to decode API response: %w", err)
	}
	if !tokenInfo.Success {
		return fmt.Errorf("API returned unsuccessful response")
	}

	// Обновляем только если получили новые данные
	if tokenInfo.Token.Symbol != "" {
		metadata.Symbol = tokenInfo.Token.Symbol
	}
	if tokenInfo.Token.Name != "" {
		metadata.Name = tokenInfo.Token.Name
	}
	if tokenInfo.Token.Decimals > 0 {
		metadata.Decimals = tokenInfo.Token.Decimals
	}
	metadata.Source = "api"
	return nil
}

// enrichFromKnownTokens заполняет метаданные для известных токенов
func enrichFromKnownTokens(asset string, metadata *TokenMetadata) bool {
	switch asset {
	case "SOL":
		metadata.Symbol, metadata.Name, metadata.Decimals = "SOL", "Solana", 9
	case "So11111111111111111111111111111111111111112": // wSOL
		metadata.Symbol, metadata.Name, metadata.Decimals = "SOL", "Wrapped SOL", 9
	case "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v": // USDC
		metadata.Symbol, metadata.Name, metadata.Decimals = "USDC", "USD Coin", 6
	case "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCdE4jT6EHx": // USDT
		metadata.Symbol, metadata.Name, metadata.Decimals = "USDT", "Tether USD", 6
	case "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263": // Bonk
		metadata.Symbol, metadata.Name, metadata.Decimals = "BONK", "Bonk", 5
	default:
		return false
	}
	metadata.Source = "known"
	return true
}

func mustJSON(v interface{}) []byte {
	raw, _ := json.Marshal(v)
	return raw
}
