package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/hitoshi/mediashelf/internal/model"
)

// maxResponseSize は外部カタログ応答の読み取り上限（5MB）。
const maxResponseSize = 5 * 1024 * 1024

// userAgent は外部カタログAPIへのリクエストに付与するUser-Agent。
const userAgent = "Mediashelf/1.0"

// fetchJSON は外部カタログAPIにGETリクエストを送信しボディを返す。
// 通信エラーと非200応答はLookupErrorに変換される。
// contextのタイムアウト超過も通信エラーとして扱われる。
func fetchJSON(ctx context.Context, client *http.Client, source, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, model.NewLookupError(source, fmt.Sprintf("リクエストの生成に失敗: %v", err))
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, model.NewLookupError(source, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(source, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, model.NewLookupError(source, fmt.Sprintf("応答の読み取りに失敗: %v", err))
	}
	return body, nil
}

// itoa64 はint64の識別子を文字列に変換する。
func itoa64(n int64) string {
	return strconv.FormatInt(n, 10)
}
