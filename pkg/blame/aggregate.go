package blame

import (
	"fmt"
	"math"
	"sort"

	"github.com/Sumatoshi-tech/blamecore/pkg/gitmeta"
)

// DegreeTuple pairs an aggregation key with the summed interaction amount
// for that key. For a diff, amounts are ordinary signed values; sums may be
// negative or zero.
type DegreeTuple struct {
	Degree int
	Amount int
}

// sumByKey reduces all interactions of a source into per-key amount sums,
// returned sorted ascending by key. Keys without interactions do not
// appear; there is no zero-filling.
func sumByKey(src InteractionSource, keyOf func(Interaction) (int, bool)) []DegreeTuple {
	sums := make(map[int]int)

	for _, entry := range src.FunctionEntries() {
		for _, inter := range entry.Interactions {
			key, ok := keyOf(inter)
			if !ok {
				continue
			}

			sums[key] += inter.Amount
		}
	}

	tuples := make([]DegreeTuple, 0, len(sums))
	for key, amount := range sums {
		tuples = append(tuples, DegreeTuple{Degree: key, Amount: amount})
	}

	sort.Slice(tuples, func(i, j int) bool { return tuples[i].Degree < tuples[j].Degree })

	return tuples
}

// DegreeTuples distributes interaction amounts over interaction degree,
// i.e. the number of interacting commits.
func DegreeTuples(src InteractionSource) []DegreeTuple {
	return sumByKey(src, func(inter Interaction) (int, bool) {
		return inter.Degree(), true
	})
}

// AuthorDegreeTuples distributes interaction amounts over the number of
// distinct authors among the interacting commits.
func AuthorDegreeTuples(src InteractionSource, lookup gitmeta.LookupFunc) ([]DegreeTuple, error) {
	var lookupErr error

	tuples := sumByKey(src, func(inter Interaction) (int, bool) {
		if lookupErr != nil {
			return 0, false
		}

		authors := make(map[string]bool, len(inter.Interacting))

		for _, ref := range inter.Interacting {
			if ref.CommitHash == UncommittedHash {
				continue
			}

			meta, err := lookup(ref)
			if err != nil {
				lookupErr = fmt.Errorf("author degree for %s: %w", ref, err)

				return 0, false
			}

			authors[meta.AuthorName] = true
		}

		return len(authors), true
	})

	if lookupErr != nil {
		return nil, lookupErr
	}

	return tuples, nil
}

// AggregateFunc reduces per-interaction day deltas into a single value.
type AggregateFunc func(deltas []int) float64

// AvgDelta averages the deltas.
func AvgDelta(deltas []int) float64 {
	if len(deltas) == 0 {
		return 0
	}

	sum := 0
	for _, d := range deltas {
		sum += d
	}

	return float64(sum) / float64(len(deltas))
}

// MaxDelta returns the largest delta.
func MaxDelta(deltas []int) float64 {
	maxDelta := 0
	for _, d := range deltas {
		if d > maxDelta {
			maxDelta = d
		}
	}

	return float64(maxDelta)
}

// hoursPerDay converts commit-time differences into whole days.
const hoursPerDay = 24

// TimeBucketTuples distributes interaction amounts over time-delta buckets.
// For every interaction the absolute day distance between the base commit
// and each interacting commit is aggregated and bucketed by bucketDays.
// Interactions with an uncommitted base are skipped.
func TimeBucketTuples(
	src InteractionSource,
	lookup gitmeta.LookupFunc,
	bucketDays int,
	aggregate AggregateFunc,
) ([]DegreeTuple, error) {
	var lookupErr error

	tuples := sumByKey(src, func(inter Interaction) (int, bool) {
		if lookupErr != nil {
			return 0, false
		}

		if inter.Base.CommitHash == UncommittedHash {
			return 0, false
		}

		baseMeta, baseErr := lookup(inter.Base)
		if baseErr != nil {
			lookupErr = fmt.Errorf("time bucket for base %s: %w", inter.Base, baseErr)

			return 0, false
		}

		deltas := make([]int, 0, len(inter.Interacting))

		for _, ref := range inter.Interacting {
			meta, err := lookup(ref)
			if err != nil {
				lookupErr = fmt.Errorf("time bucket for %s: %w", ref, err)

				return 0, false
			}

			days := int(math.Abs(baseMeta.CommitTime.Sub(meta.CommitTime).Hours()) / hoursPerDay)
			deltas = append(deltas, days)
		}

		bucket := int(math.Round(aggregate(deltas) / float64(bucketDays)))

		return bucket, true
	})

	if lookupErr != nil {
		return nil, lookupErr
	}

	return tuples, nil
}

// AvgTimeBucketTuples buckets by the average day distance per interaction.
func AvgTimeBucketTuples(src InteractionSource, lookup gitmeta.LookupFunc, bucketDays int) ([]DegreeTuple, error) {
	return TimeBucketTuples(src, lookup, bucketDays, AvgDelta)
}

// MaxTimeBucketTuples buckets by the maximal day distance per interaction.
func MaxTimeBucketTuples(src InteractionSource, lookup gitmeta.LookupFunc, bucketDays int) ([]DegreeTuple, error) {
	return TimeBucketTuples(src, lookup, bucketDays, MaxDelta)
}

// CountInteractions sums the absolute amounts over all interactions.
func CountInteractions(src InteractionSource) int {
	total := 0

	for _, entry := range src.FunctionEntries() {
		for _, inter := range entry.Interactions {
			total += abs(inter.Amount)
		}
	}

	return total
}

// CountInteractingCommits counts the distinct interacting commits.
func CountInteractingCommits(src InteractionSource) int {
	seen := make(map[gitmeta.CommitRef]bool)

	for _, entry := range src.FunctionEntries() {
		for _, inter := range entry.Interactions {
			for _, ref := range inter.Interacting {
				seen[ref] = true
			}
		}
	}

	return len(seen)
}

// CountInteractingAuthors counts the distinct authors of interacting
// commits.
func CountInteractingAuthors(src InteractionSource, lookup gitmeta.LookupFunc) (int, error) {
	seen := make(map[string]bool)

	for _, entry := range src.FunctionEntries() {
		for _, inter := range entry.Interactions {
			for _, ref := range inter.Interacting {
				if ref.CommitHash == UncommittedHash {
					continue
				}

				meta, err := lookup(ref)
				if err != nil {
					return 0, fmt.Errorf("interacting authors for %s: %w", ref, err)
				}

				seen[meta.AuthorName] = true
			}
		}
	}

	return len(seen), nil
}

// BaseToInterMapping maps every base commit to its distinct interacting
// commits with the summed amount per pair.
func BaseToInterMapping(src InteractionSource) map[gitmeta.CommitRef]map[gitmeta.CommitRef]int {
	mapping := make(map[gitmeta.CommitRef]map[gitmeta.CommitRef]int)

	for _, entry := range src.FunctionEntries() {
		for _, inter := range entry.Interactions {
			inner, exists := mapping[inter.Base]
			if !exists {
				inner = make(map[gitmeta.CommitRef]int)
				mapping[inter.Base] = inner
			}

			for _, ref := range inter.Interacting {
				inner[ref] += inter.Amount
			}
		}
	}

	return mapping
}

// LibraryDegreeTuples distributes interaction amounts over per-library
// degrees: for each base repository, how often commits of each interacting
// repository appear within one interaction. Keys are repository names.
func LibraryDegreeTuples(src InteractionSource) map[string]map[string][]DegreeTuple {
	sums := make(map[string]map[string]map[int]int)

	for _, entry := range src.FunctionEntries() {
		for _, inter := range entry.Interactions {
			baseRepo := inter.Base.RepositoryName

			perRepoDegree := make(map[string]int)
			for _, ref := range inter.Interacting {
				perRepoDegree[ref.RepositoryName]++
			}

			if sums[baseRepo] == nil {
				sums[baseRepo] = make(map[string]map[int]int)
			}

			for repo, degree := range perRepoDegree {
				if sums[baseRepo][repo] == nil {
					sums[baseRepo][repo] = make(map[int]int)
				}

				sums[baseRepo][repo][degree] += inter.Amount
			}
		}
	}

	result := make(map[string]map[string][]DegreeTuple, len(sums))

	for baseRepo, perRepo := range sums {
		result[baseRepo] = make(map[string][]DegreeTuple, len(perRepo))

		for repo, degrees := range perRepo {
			tuples := make([]DegreeTuple, 0, len(degrees))
			for degree, amount := range degrees {
				tuples = append(tuples, DegreeTuple{Degree: degree, Amount: amount})
			}

			sort.Slice(tuples, func(i, j int) bool { return tuples[i].Degree < tuples[j].Degree })

			result[baseRepo][repo] = tuples
		}
	}

	return result
}

// InteractingCommitsFor returns the commits a given commit interacts with,
// split into incoming (the commit appears as an interacting hash) and
// outgoing (the commit is the base) sides.
func InteractingCommitsFor(
	src InteractionSource,
	commit gitmeta.CommitRef,
) (incoming, outgoing map[gitmeta.CommitRef]bool) {
	incoming = make(map[gitmeta.CommitRef]bool)
	outgoing = make(map[gitmeta.CommitRef]bool)

	for _, entry := range src.FunctionEntries() {
		for _, inter := range entry.Interactions {
			if inter.Base == commit {
				for _, ref := range inter.Interacting {
					outgoing[ref] = true
				}
			}

			for _, ref := range inter.Interacting {
				if ref == commit {
					incoming[inter.Base] = true
				}
			}
		}
	}

	return incoming, outgoing
}

// abs is integer absolute value.
func abs(v int) int {
	if v < 0 {
		return -v
	}

	return v
}
