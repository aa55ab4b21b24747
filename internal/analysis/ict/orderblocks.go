package ict

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"marketAnalyzer/internal/domain"
	"marketAnalyzer/internal/ports"
)

const (
	defaultMinBlockSize        = 0.001
	defaultMaxBlocks           = 10
	defaultMitigationThreshold = 0.5

	// Candidate bar must not be strongly directional itself; the breakout
	// bar must be.
	candidateMaxBodyRatio = 0.7
	breakoutMinBodyRatio  = 0.6

	// Candidate volume floor relative to the rolling average.
	volumeFloorRatio = 0.8
	volumeWindow     = 20

	// Mitigation is only considered over the most recent bars.
	mitigationWindow = 10

	// A block is invalidated when price runs this many block ranges beyond it.
	invalidationMultiple = 5.0
)

// OrderBlockConfig configures an OrderBlockDetector. Zero values take the
// documented defaults.
type OrderBlockConfig struct {
	MinBlockSize        float64 // minimum block range as fraction of price, default 0.001
	MaxBlocks           int     // active set cap, default 10
	MitigationThreshold float64 // fraction of range that must be penetrated, default 0.5
	MaxHistory          int     // candle buffer cap, default 1000
}

func (c *OrderBlockConfig) applyDefaults() {
	if c.MinBlockSize <= 0 {
		c.MinBlockSize = defaultMinBlockSize
	}
	if c.MaxBlocks <= 0 {
		c.MaxBlocks = defaultMaxBlocks
	}
	if c.MitigationThreshold <= 0 {
		c.MitigationThreshold = defaultMitigationThreshold
	}
	if c.MaxHistory <= 0 {
		c.MaxHistory = defaultMaxHistory
	}
}

// OrderBlockDetector finds order blocks in a candle stream and tracks their
// lifecycle from active through mitigation or invalidation.
//
// Each candidate bar is evaluated once, when its breakout bar arrives; a
// seen-set keyed by timestamp and direction prevents re-detection as the
// window slides.
type OrderBlockDetector struct {
	cfg OrderBlockConfig

	candles        []domain.Candle
	activeBlocks   []domain.OrderBlock
	retiredBlocks  []domain.OrderBlock
	seenCandidates map[string]bool
	blockCounter   int
	logger         ports.Logger
}

// NewOrderBlockDetector creates an order block detector.
func NewOrderBlockDetector(cfg OrderBlockConfig, logger ports.Logger) (*OrderBlockDetector, error) {
	if logger == nil {
		return nil, fmt.Errorf("%w: logger is required for order block detector", ports.ErrInvalidConfig)
	}
	cfg.applyDefaults()
	if cfg.MitigationThreshold > 1 {
		return nil, fmt.Errorf("%w: mitigation threshold %.2f above 1.0", ports.ErrInvalidConfig, cfg.MitigationThreshold)
	}

	return &OrderBlockDetector{
		cfg:            cfg,
		seenCandidates: make(map[string]bool),
		logger:         logger,
	}, nil
}

// Update ingests one candle, detects any new blocks and advances the
// lifecycle of existing ones. It returns the newly detected blocks.
func (d *OrderBlockDetector) Update(ctx context.Context, candle domain.Candle) []domain.OrderBlock {
	d.candles = append(d.candles, candle)
	if len(d.candles) > d.cfg.MaxHistory {
		d.candles = d.candles[len(d.candles)-d.cfg.MaxHistory:]
	}
	return d.DetectOrderBlocks(ctx, d.candles)
}

// DetectOrderBlocks scans the candles for block candidates followed by a
// breakout bar, then updates mitigation and invalidation state against the
// newest bar. Candidates already evaluated are skipped.
func (d *OrderBlockDetector) DetectOrderBlocks(ctx context.Context, candles []domain.Candle) []domain.OrderBlock {
	if len(candles) < 10 {
		return nil
	}

	var newBlocks []domain.OrderBlock
	for i := 5; i < len(candles)-1; i++ {
		if block := d.checkCandidate(candles, i, domain.OrderBlockBullish); block != nil {
			newBlocks = append(newBlocks, *block)
		}
		if block := d.checkCandidate(candles, i, domain.OrderBlockBearish); block != nil {
			newBlocks = append(newBlocks, *block)
		}
	}

	for _, block := range newBlocks {
		d.addBlock(ctx, block)
	}
	d.advanceLifecycle(ctx, candles)

	return newBlocks
}

// checkCandidate evaluates the bar at index as a block candidate with the
// following bar as its breakout.
func (d *OrderBlockDetector) checkCandidate(candles []domain.Candle, index int, blockType domain.OrderBlockType) *domain.OrderBlock {
	candidate := candles[index]
	breakout := candles[index+1]

	key := candidateKey(candidate.Timestamp, blockType)
	if d.seenCandidates[key] {
		return nil
	}

	candidateRange := candidate.TotalRange()
	breakoutRange := breakout.TotalRange()
	if candidateRange == 0 || breakoutRange == 0 {
		return nil
	}

	// The candidate itself must not be a strong directional bar.
	if candidate.BodySize()/candidateRange > candidateMaxBodyRatio {
		return nil
	}

	// The breakout bar must be strongly directional and break beyond the
	// candidate in the block's direction.
	switch blockType {
	case domain.OrderBlockBullish:
		if !breakout.IsBullish() ||
			breakout.BodySize()/breakoutRange < breakoutMinBodyRatio ||
			breakout.High <= candidate.High {
			return nil
		}
	case domain.OrderBlockBearish:
		if !breakout.IsBearish() ||
			breakout.BodySize()/breakoutRange < breakoutMinBodyRatio ||
			breakout.Low >= candidate.Low {
			return nil
		}
	}

	avgVolume := rollingAvgVolume(candles, index, volumeWindow)
	if avgVolume > 0 && candidate.Volume < avgVolume*volumeFloorRatio {
		return nil
	}

	if candidateRange/candidate.Close < d.cfg.MinBlockSize {
		return nil
	}

	d.seenCandidates[key] = true
	d.pruneSeen()

	d.blockCounter++
	return &domain.OrderBlock{
		ID:        fmt.Sprintf("OB_%d", d.blockCounter),
		Timestamp: candidate.Timestamp,
		Type:      blockType,
		High:      candidate.High,
		Low:       candidate.Low,
		Open:      candidate.Open,
		Close:     candidate.Close,
		Volume:    candidate.Volume,
		Strength:  blockStrength(candles, index, blockType),
		Status:    domain.OrderBlockActive,
	}
}

// blockStrength blends the candidate's volume ratio (up to 0.4), the price
// excursion beyond the block over the following bars (up to 0.4) and the
// block size against the average range (up to 0.2).
func blockStrength(candles []domain.Candle, index int, blockType domain.OrderBlockType) float64 {
	candidate := candles[index]
	strength := 0.0

	if avgVolume := rollingAvgVolume(candles, index, volumeWindow); avgVolume > 0 {
		strength += math.Min(candidate.Volume/avgVolume/3.0, 0.4)
	}

	// Excursion over up to five bars after the candidate.
	end := index + 6
	if end > len(candles) {
		end = len(candles)
	}
	future := candles[index+1 : end]
	if len(future) > 0 {
		if blockType == domain.OrderBlockBullish {
			maxHigh := future[0].High
			for _, c := range future[1:] {
				maxHigh = math.Max(maxHigh, c.High)
			}
			if maxHigh > candidate.High {
				strength += math.Min((maxHigh-candidate.High)/candidate.High*10, 0.4)
			}
		} else {
			minLow := future[0].Low
			for _, c := range future[1:] {
				minLow = math.Min(minLow, c.Low)
			}
			if minLow < candidate.Low {
				strength += math.Min((candidate.Low-minLow)/candidate.Low*10, 0.4)
			}
		}
	}

	if avgRange := rollingAvgRange(candles, index, volumeWindow); avgRange > 0 {
		strength += math.Min(candidate.TotalRange()/avgRange/2.0, 0.2)
	}

	return math.Min(strength, 1.0)
}

// addBlock appends to the active set, evicting the weakest block into the
// retired list when the cap is exceeded.
func (d *OrderBlockDetector) addBlock(ctx context.Context, block domain.OrderBlock) {
	d.activeBlocks = append(d.activeBlocks, block)
	d.logger.Debug(ctx, "order block detected", map[string]interface{}{
		"id":       block.ID,
		"type":     string(block.Type),
		"high":     block.High,
		"low":      block.Low,
		"strength": block.Strength,
	})

	if len(d.activeBlocks) > d.cfg.MaxBlocks {
		sort.SliceStable(d.activeBlocks, func(i, j int) bool {
			return d.activeBlocks[i].Strength > d.activeBlocks[j].Strength
		})
		weakest := d.activeBlocks[len(d.activeBlocks)-1]
		d.activeBlocks = d.activeBlocks[:len(d.activeBlocks)-1]
		d.retireBlock(weakest)
	}
}

// advanceLifecycle updates the mitigation and invalidation status of each
// active block against the most recent candles.
func (d *OrderBlockDetector) advanceLifecycle(ctx context.Context, candles []domain.Candle) {
	if len(candles) == 0 {
		return
	}
	current := candles[len(candles)-1]

	remaining := d.activeBlocks[:0]
	for i := range d.activeBlocks {
		block := d.activeBlocks[i]

		switch {
		case d.isMitigated(block, candles):
			block.Status = domain.OrderBlockMitigated
			block.MitigationCount++
			d.logger.Debug(ctx, "order block mitigated", map[string]interface{}{"id": block.ID})
			d.retireBlock(block)

		case d.isInvalidated(block, current.Close):
			block.Status = domain.OrderBlockInvalidated
			d.logger.Debug(ctx, "order block invalidated", map[string]interface{}{"id": block.ID})
			d.retireBlock(block)

		default:
			if priceNearBlock(block, current.Close) {
				if !block.LastTest.Equal(current.Timestamp) {
					block.MitigationCount++
				}
				block.LastTest = current.Timestamp
			}
			remaining = append(remaining, block)
		}
	}
	d.activeBlocks = remaining
}

// isMitigated reports whether recent price penetrated the block from the
// opposite side by at least the configured fraction of its range. Only bars
// formed after the block count.
func (d *OrderBlockDetector) isMitigated(block domain.OrderBlock, candles []domain.Candle) bool {
	recent := candles
	if len(recent) > mitigationWindow {
		recent = recent[len(recent)-mitigationWindow:]
	}
	mitigationLevel := block.Range() * d.cfg.MitigationThreshold

	for _, candle := range recent {
		if !candle.Timestamp.After(block.Timestamp) {
			continue
		}
		if block.Type == domain.OrderBlockBullish {
			if candle.Low <= block.High && candle.Low >= block.Low &&
				block.High-candle.Low >= mitigationLevel {
				return true
			}
		} else {
			if candle.High >= block.Low && candle.High <= block.High &&
				candle.High-block.Low >= mitigationLevel {
				return true
			}
		}
	}
	return false
}

// isInvalidated reports whether price has run five block ranges beyond the
// block in the adverse direction.
func (d *OrderBlockDetector) isInvalidated(block domain.OrderBlock, currentPrice float64) bool {
	distance := block.Range() * invalidationMultiple
	if block.Type == domain.OrderBlockBullish {
		return currentPrice < block.Low-distance
	}
	return currentPrice > block.High+distance
}

// priceNearBlock reports whether price is within half a block range of the
// block's bounds.
func priceNearBlock(block domain.OrderBlock, price float64) bool {
	near := block.Range() * 0.5
	return price >= block.Low-near && price <= block.High+near
}

// GenerateSignals produces entry and retest signals for the active blocks
// against the most recent candle.
func (d *OrderBlockDetector) GenerateSignals(_ context.Context) []domain.OrderBlockSignal {
	if len(d.candles) < 2 {
		return nil
	}
	current := d.candles[len(d.candles)-1]

	var signals []domain.OrderBlockSignal
	for _, block := range d.activeBlocks {
		if signal := entrySignal(block, current); signal != nil {
			signals = append(signals, *signal)
		}
		if signal := retestSignal(block, current); signal != nil {
			signals = append(signals, *signal)
		}
	}
	return signals
}

// entrySignal fires when price touches the block with a reaction bar in the
// block's direction.
func entrySignal(block domain.OrderBlock, candle domain.Candle) *domain.OrderBlockSignal {
	if block.Type == domain.OrderBlockBullish {
		if candle.Low <= block.High && candle.Low >= block.Low && candle.IsBullish() {
			return &domain.OrderBlockSignal{
				Timestamp:  candle.Timestamp,
				Block:      block,
				SignalType: domain.OrderBlockEntry,
				Price:      candle.Close,
				Confidence: block.Strength * 0.8,
				StopLoss:   block.Low * 0.999,
				TakeProfit: block.High + block.Range()*2,
			}
		}
		return nil
	}

	if candle.High >= block.Low && candle.High <= block.High && candle.IsBearish() {
		return &domain.OrderBlockSignal{
			Timestamp:  candle.Timestamp,
			Block:      block,
			SignalType: domain.OrderBlockEntry,
			Price:      candle.Close,
			Confidence: block.Strength * 0.8,
			StopLoss:   block.High * 1.001,
			TakeProfit: block.Low - block.Range()*2,
		}
	}
	return nil
}

// retestSignal fires when price re-approaches a block that has already been
// tested.
func retestSignal(block domain.OrderBlock, candle domain.Candle) *domain.OrderBlockSignal {
	if block.MitigationCount == 0 || !priceNearBlock(block, candle.Close) {
		return nil
	}
	return &domain.OrderBlockSignal{
		Timestamp:  candle.Timestamp,
		Block:      block,
		SignalType: domain.OrderBlockRetest,
		Price:      candle.Close,
		Confidence: block.Strength * 0.6,
	}
}

// ActiveBlocks returns a copy of the active block set.
func (d *OrderBlockDetector) ActiveBlocks() []domain.OrderBlock {
	out := make([]domain.OrderBlock, len(d.activeBlocks))
	copy(out, d.activeBlocks)
	return out
}

// BlocksSummary returns aggregate counts and the average active strength.
func (d *OrderBlockDetector) BlocksSummary() map[string]interface{} {
	bullish, bearish := 0, 0
	totalStrength := 0.0
	for _, block := range d.activeBlocks {
		if block.Type == domain.OrderBlockBullish {
			bullish++
		} else {
			bearish++
		}
		totalStrength += block.Strength
	}

	avgStrength := 0.0
	if len(d.activeBlocks) > 0 {
		avgStrength = totalStrength / float64(len(d.activeBlocks))
	}

	return map[string]interface{}{
		"active_blocks":  len(d.activeBlocks),
		"retired_blocks": len(d.retiredBlocks),
		"bullish_blocks": bullish,
		"bearish_blocks": bearish,
		"avg_strength":   avgStrength,
	}
}

// Reset clears all buffered candles, blocks and dedup state.
func (d *OrderBlockDetector) Reset() {
	d.candles = nil
	d.activeBlocks = nil
	d.retiredBlocks = nil
	d.seenCandidates = make(map[string]bool)
	d.blockCounter = 0
}

func (d *OrderBlockDetector) retireBlock(block domain.OrderBlock) {
	d.retiredBlocks = append(d.retiredBlocks, block)
	if len(d.retiredBlocks) > d.cfg.MaxHistory {
		d.retiredBlocks = d.retiredBlocks[len(d.retiredBlocks)-d.cfg.MaxHistory:]
	}
}

// pruneSeen keeps the dedup set bounded for long-running streams.
func (d *OrderBlockDetector) pruneSeen() {
	if len(d.seenCandidates) <= 4*defaultMaxHistory {
		return
	}
	d.seenCandidates = make(map[string]bool)
}

func candidateKey(ts time.Time, blockType domain.OrderBlockType) string {
	return fmt.Sprintf("%d_%s", ts.UnixNano(), blockType)
}

// rollingAvgVolume averages volume over the window ending at index.
func rollingAvgVolume(candles []domain.Candle, index, window int) float64 {
	start := index - window + 1
	if start < 0 {
		start = 0
	}
	slice := candles[start : index+1]
	if len(slice) == 0 {
		return 0
	}
	total := 0.0
	for _, c := range slice {
		total += c.Volume
	}
	return total / float64(len(slice))
}

// rollingAvgRange averages the high-low span over the window ending at index.
func rollingAvgRange(candles []domain.Candle, index, window int) float64 {
	start := index - window + 1
	if start < 0 {
		start = 0
	}
	slice := candles[start : index+1]
	if len(slice) == 0 {
		return 0
	}
	total := 0.0
	for _, c := range slice {
		total += c.TotalRange()
	}
	return total / float64(len(slice))
}
