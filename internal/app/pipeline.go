package app

import (
	"errors"
	"log"
	"time"

	"github.com/ayusman/lookout/internal/detect"
	"github.com/ayusman/lookout/internal/plugin"
	"github.com/ayusman/lookout/internal/source"
	"github.com/ayusman/lookout/internal/store"
)

// runPipeline is the main processing loop.
//
// Per frame:
// 1. Pull the next frame from the source
// 2. Suppress overlapping boxes, then apply the configured filters
// 3. Persist the frame with its surviving detections
// 4. Publish the result to the latest-result cache and subscribers
// 5. Fire alert rules matching the surviving classes
//
// Source errors other than end-of-stream are logged and the loop moves on to
// the next frame.
func (a *App) runPipeline(stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	lastPrune := time.Now()

	for {
		select {
		case <-stopCh:
			return
		default:
		}

		frame, err := a.config.Source.Next()
		if err != nil {
			if errors.Is(err, source.ErrStreamEnded) {
				log.Println("Detection stream ended")
				return
			}
			if errors.Is(err, source.ErrSourceClosed) {
				return
			}
			log.Printf("Error reading frame: %v", err)
			a.recordFailure()
			time.Sleep(errorBackoff)
			continue
		}

		result := a.processFrame(frame)
		a.publish(result)
		a.fireAlerts(result)

		if a.config.Retention > 0 && time.Since(lastPrune) >= pruneInterval {
			a.pruneFrames()
			lastPrune = time.Now()
		}
	}
}

// processFrame runs suppression and filtering over the frame's detections,
// persists the survivors and returns the result to publish.
func (a *App) processFrame(frame *source.Frame) Result {
	kept := detect.Suppress(frame.Detections, a.iouThreshold)
	kept = a.filter(kept)

	result := Result{
		Seq:         frame.Seq,
		CapturedAt:  frame.CapturedAt,
		ProcessedAt: time.Now(),
		RawCount:    len(frame.Detections),
		KeptCount:   len(kept),
		Detections:  kept,
	}

	if a.config.Store != nil {
		record := &store.FrameRecord{
			Seq:        frame.Seq,
			Source:     a.config.SourceLabel,
			CapturedAt: frame.CapturedAt,
			RawCount:   len(frame.Detections),
			Detections: kept,
		}
		if err := a.config.Store.Frames().Create(record); err != nil {
			// Keep publishing even when the database misbehaves; live
			// consumers should not go dark over a persistence error.
			log.Printf("Error persisting frame %d: %v", frame.Seq, err)
		} else {
			result.FrameID = record.ID
		}
	}

	return result
}

// publish stores the result in the latest cache, updates the counters and
// notifies subscribers in registration order.
func (a *App) publish(result Result) {
	a.mu.Lock()
	a.latest = &result
	a.stats.FramesProcessed++
	a.stats.DetectionsIn += int64(result.RawCount)
	a.stats.DetectionsKept += int64(result.KeptCount)
	a.stats.LastFrameAt = result.ProcessedAt
	callbacks := make([]func(Result), len(a.callbacks))
	copy(callbacks, a.callbacks)
	a.mu.Unlock()

	for _, fn := range callbacks {
		fn(result)
	}
}

func (a *App) recordFailure() {
	a.mu.Lock()
	a.stats.FramesFailed++
	a.mu.Unlock()
}

// fireAlerts looks up the enabled rules for each surviving class and executes
// the bound plugin action, honoring the per-rule cooldown.
func (a *App) fireAlerts(result Result) {
	if a.config.Store == nil || len(result.Detections) == 0 {
		return
	}

	// Group survivors by class so each rule sees only its own class
	byClass := make(map[string][]detect.Detection)
	for _, d := range result.Detections {
		byClass[d.ClassName] = append(byClass[d.ClassName], d)
	}

	for className, detections := range byClass {
		rules, err := a.config.Store.Rules().ListEnabledByClass(className)
		if err != nil {
			log.Printf("Error loading rules for class %s: %v", className, err)
			continue
		}

		for _, rule := range rules {
			if !a.ruleReady(rule, detections) {
				continue
			}
			a.executeRule(rule, className, result, detections)
		}
	}
}

// ruleReady reports whether the rule's confidence floor is met by at least one
// detection and its cooldown window has elapsed.
func (a *App) ruleReady(rule *store.Rule, detections []detect.Detection) bool {
	if rule.MinConfidence > 0 {
		met := false
		for _, d := range detections {
			if d.Confidence >= rule.MinConfidence {
				met = true
				break
			}
		}
		if !met {
			return false
		}
	}

	if rule.CooldownSeconds > 0 {
		a.mu.RLock()
		last, ok := a.lastAlert[rule.ID]
		a.mu.RUnlock()
		if ok && time.Since(last) < time.Duration(rule.CooldownSeconds)*time.Second {
			return false
		}
	}

	return true
}

// executeRule runs the rule's plugin action for the detections of one class.
// The cooldown clock only advances on success, so a failing plugin is retried
// on the next matching frame.
func (a *App) executeRule(rule *store.Rule, className string, result Result, detections []detect.Detection) {
	plug, err := a.pluginMgr.Get(rule.PluginName)
	if err != nil {
		log.Printf("Rule %s references unknown plugin %q", rule.ID, rule.PluginName)
		return
	}
	if !plug.HasAction(rule.ActionName) {
		log.Printf("Plugin %q does not support action %q", rule.PluginName, rule.ActionName)
		return
	}

	req := &plugin.Request{
		Action:     rule.ActionName,
		RuleID:     rule.ID,
		ClassName:  className,
		FrameSeq:   result.Seq,
		Detections: detections,
		Config:     rule.Config,
	}

	resp, err := a.pluginExec.Execute(plug, req)
	if err != nil {
		log.Printf("Alert plugin %q failed: %v", rule.PluginName, err)
		return
	}
	if !resp.Success {
		log.Printf("Alert plugin %q reported error: %s", rule.PluginName, resp.Error)
		return
	}

	a.mu.Lock()
	a.lastAlert[rule.ID] = time.Now()
	a.stats.AlertsFired++
	a.mu.Unlock()

	log.Printf("Alert fired: %s detected, rule %s ran %s/%s", className, rule.ID, rule.PluginName, rule.ActionName)
}

// pruneFrames deletes persisted frames older than the retention window.
func (a *App) pruneFrames() {
	if a.config.Store == nil {
		return
	}
	cutoff := time.Now().Add(-a.config.Retention)
	n, err := a.config.Store.Frames().DeleteOlderThan(cutoff)
	if err != nil {
		log.Printf("Error pruning frames: %v", err)
		return
	}
	if n > 0 {
		log.Printf("Pruned %d frames older than %s", n, a.config.Retention)
	}
}
