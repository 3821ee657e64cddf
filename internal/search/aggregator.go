// Package search は外部カタログ検索のファンアウトと結果集約を提供する。
package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/hitoshi/mediashelf/internal/catalog"
	"github.com/hitoshi/mediashelf/internal/model"
)

// State はアグリゲータの観測可能な状態を表す。
type State string

const (
	// StateIdle は検索未実行の初期状態。
	StateIdle State = "idle"
	// StateLoading はリクエスト実行中。
	StateLoading State = "loading"
	// StateError は要求された全種別の検索が失敗した状態。
	StateError State = "error"
	// StateSuccess は検索完了（結果は空の場合もある）。
	StateSuccess State = "success"
)

// LookupRecorder は種別ごとの検索結果を計測するインターフェース。
// metrics.Collectorが実装する。nilの場合は計測しない。
type LookupRecorder interface {
	RecordLookup(source string, success bool, seconds float64)
}

// Aggregator はクエリを要求された全メディア種別に並行ディスパッチし、
// 1つの順序付き結果リストにマージする。
//
// マージ方針: 各ソース内の関連度順を保ったまま、要求された種別の順に連結する。
// 部分失敗方針: 失敗した種別は0件として扱い、全種別が失敗した場合のみエラー状態になる。
//
// 状態を持つSearch/Snapshot経路は「最新リクエスト勝ち」の規則に従う:
// 単調増加するシーケンストークンを発行し、完了したリクエストは自身のトークンが
// まだ最新である場合にのみ結果を適用する。遅れて完了した古いリクエストの結果が
// 新しい結果を上書きすることはない。検索のキャンセルには依存しない。
type Aggregator struct {
	registry catalog.Registry
	timeout  time.Duration
	recorder LookupRecorder
	logger   *slog.Logger

	mu      sync.Mutex
	seq     uint64
	state   State
	results []model.SearchResult
	errMsg  string
}

// NewAggregator はAggregatorの新しいインスタンスを生成する。
// timeoutは種別ごとの外部検索に適用される上限時間。
func NewAggregator(registry catalog.Registry, timeout time.Duration, recorder LookupRecorder, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		registry: registry,
		timeout:  timeout,
		recorder: recorder,
		logger:   logger,
		state:    StateIdle,
	}
}

// typeResult はファンアウト中の1種別分の結果を保持する。
type typeResult struct {
	results []model.SearchResult
	err     error
}

// SearchOnce は同期的に検索を実行する。HTTPハンドラー向けの経路で、
// アグリゲータの状態には影響しない。
// typesが空の場合は全メディア種別を対象とする。
func (a *Aggregator) SearchOnce(ctx context.Context, query string, types []model.MediaType) ([]model.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, model.NewValidationError("検索キーワードが入力されていません")
	}
	if len(types) == 0 {
		types = model.AllMediaTypes()
	}
	for _, mt := range types {
		if !mt.IsValid() {
			return nil, model.NewValidationError(fmt.Sprintf("不正なメディア種別: %s", mt))
		}
	}
	return a.fanOut(ctx, query, types)
}

// Search は非同期検索を開始し、このリクエストのシーケンストークンを返す。
// 以前のリクエストが実行中でも新しいリクエストが最新になり、
// 古いリクエストの結果は完了時に破棄される。
func (a *Aggregator) Search(ctx context.Context, query string, types []model.MediaType) uint64 {
	a.mu.Lock()
	a.seq++
	token := a.seq
	a.state = StateLoading
	a.mu.Unlock()

	go func() {
		results, err := a.SearchOnce(ctx, query, types)
		a.apply(token, results, err)
	}()

	return token
}

// Snapshot は現在の状態・結果・エラーメッセージを返す。
func (a *Aggregator) Snapshot() (State, []model.SearchResult, string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state, a.results, a.errMsg
}

// apply は完了したリクエストの結果を状態に反映する。
// トークンが最新でない場合（後続のリクエストが発行済み）は何もしない。
func (a *Aggregator) apply(token uint64, results []model.SearchResult, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if token != a.seq {
		a.logger.Debug("古い検索結果を破棄しました",
			slog.Uint64("token", token),
			slog.Uint64("latest", a.seq),
		)
		return
	}

	if err != nil {
		a.state = StateError
		a.results = nil
		a.errMsg = err.Error()
		return
	}

	a.state = StateSuccess
	a.results = results
	a.errMsg = ""
}

// fanOut は要求された種別ごとに1つの検索を並行実行し、結果を連結する。
func (a *Aggregator) fanOut(ctx context.Context, query string, types []model.MediaType) ([]model.SearchResult, error) {
	perType := make([]typeResult, len(types))

	var wg sync.WaitGroup
	for i, mt := range types {
		source, ok := a.registry.SourceFor(mt)
		if !ok {
			perType[i].err = model.NewLookupError(string(mt), "対応するカタログソースがありません")
			continue
		}

		wg.Add(1)
		go func(i int, source catalog.Source) {
			defer wg.Done()

			lookupCtx := ctx
			if a.timeout > 0 {
				var cancel context.CancelFunc
				lookupCtx, cancel = context.WithTimeout(ctx, a.timeout)
				defer cancel()
			}

			start := time.Now()
			results, err := source.Search(lookupCtx, query)
			elapsed := time.Since(start).Seconds()

			if a.recorder != nil {
				a.recorder.RecordLookup(source.Name(), err == nil, elapsed)
			}

			if err != nil {
				a.logger.Warn("カタログ検索に失敗しました",
					slog.String("source", source.Name()),
					slog.String("media_type", string(source.MediaType())),
					slog.String("error", err.Error()),
				)
				perType[i].err = err
				return
			}
			perType[i].results = results
		}(i, source)
	}
	wg.Wait()

	// 要求された種別の順に連結する。失敗した種別は0件として扱う。
	var merged []model.SearchResult
	var failures []string
	for i, mt := range types {
		if perType[i].err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", mt, perType[i].err))
			continue
		}
		merged = append(merged, perType[i].results...)
	}

	// 全種別が失敗した場合のみエラー
	if len(failures) == len(types) {
		return nil, model.NewAllLookupsFailedError(strings.Join(failures, "; "))
	}

	if merged == nil {
		merged = []model.SearchResult{}
	}
	return merged, nil
}
