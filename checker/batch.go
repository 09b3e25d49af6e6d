package checker

import (
	"context"

	"github.com/sirupsen/logrus"
)

// CheckBatch checks keywords one after another, pausing between keywords.
// base supplies everything but the keyword. Cancelling ctx only stops
// scheduling further keywords: a keyword already started runs to completion.
// onResult, when set, sees each result as soon as it is ready.
//
// The results cover the keywords processed before ctx was done; the error is
// ctx's error in that case and nil otherwise. Failed keywords are reported in
// their RankResult, never as an error.
func (c *Checker) CheckBatch(ctx context.Context, base Request, keywords []string, onResult func(RankResult)) ([]RankResult, error) {
	results := make([]RankResult, 0, len(keywords))
	for i, kw := range keywords {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		if i > 0 {
			if err := c.throttle.NextKeyword(ctx); err != nil {
				return results, err
			}
		}

		req := base
		req.Keyword = kw
		var res RankResult
		if p, err := c.prepare(req); err != nil {
			res = c.finish(RankResult{Keyword: kw, Message: err.Error()})
		} else {
			res = c.checkSequential(context.WithoutCancel(ctx), p)
		}

		c.logger.WithFields(logrus.Fields{
			"keyword": kw,
			"index":   i + 1,
			"total":   len(keywords),
			"rank":    res.Rank,
			"success": res.Success,
		}).Info("batch keyword checked")

		results = append(results, res)
		if onResult != nil {
			onResult(res)
		}
	}
	return results, nil
}

// CheckNicknameBatch checks where any of nicknames ranks for each keyword.
func (c *Checker) CheckNicknameBatch(ctx context.Context, nicknames, keywords []string, device string, onResult func(RankResult)) ([]RankResult, error) {
	return c.CheckBatch(ctx, Request{Device: device, Nicknames: nicknames}, keywords, onResult)
}
