package dedupe_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	dedupe "github.com/okian/ballotboard/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

const fp = "fp"

// record reports whether key was already seen with the shared fingerprint.
func record(d dedupe.Deduper, key string) bool {
	seen, err := d.SeenAndRecord(context.Background(), key, fp)
	So(err, ShouldBeNil)
	return seen
}

func TestInMemoryDeduper(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new InMemoryDeduper", t, func() {
		Convey("When creating a deduper with default options", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("Then it should start empty", func() {
				So(d, ShouldNotBeNil)
				So(d.Size(), ShouldEqual, 0)
			})
		})

		Convey("When recording keys", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("And the key is new", func() {
				seen := record(d, "k1")

				Convey("Then it should return false and record the key", func() {
					So(seen, ShouldBeFalse)
					So(d.Size(), ShouldEqual, 1)
				})
			})

			Convey("And the key was already seen", func() {
				record(d, "k1")
				seen := record(d, "k1")

				Convey("Then it should return true", func() {
					So(seen, ShouldBeTrue)
					So(d.Size(), ShouldEqual, 1)
				})
			})

			Convey("And the key is replayed with another fingerprint", func() {
				record(d, "k1")
				seen, err := d.SeenAndRecord(ctx, "k1", "other")

				Convey("Then it is reported as reused and the first fingerprint is kept", func() {
					So(seen, ShouldBeFalse)
					So(errors.Is(err, dedupe.ErrKeyReused), ShouldBeTrue)
					So(record(d, "k1"), ShouldBeTrue)
					So(d.Size(), ShouldEqual, 1)
				})
			})

			Convey("And the key is unrecorded", func() {
				record(d, "k1")
				d.Unrecord(ctx, "k1")
				d.Unrecord(ctx, "missing")

				Convey("Then it can be recorded again", func() {
					So(d.Size(), ShouldEqual, 0)
					So(record(d, "k1"), ShouldBeFalse)
				})
			})
		})

		Convey("When the bounded deduper is full", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
			for i := 1; i <= 4; i++ {
				record(d, fmt.Sprintf("k%d", i))
			}

			Convey("Then the oldest key is evicted", func() {
				So(d.Size(), ShouldEqual, 3)
				So(record(d, "k4"), ShouldBeTrue)
				So(record(d, "k2"), ShouldBeTrue)
				So(record(d, "k1"), ShouldBeFalse)
			})
		})

		Convey("When the deduper is unbounded", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
			for i := 0; i < 1000; i++ {
				record(d, fmt.Sprintf("k%d", i))
			}

			Convey("Then nothing is evicted", func() {
				So(d.Size(), ShouldEqual, 1000)
				So(record(d, "k0"), ShouldBeTrue)
			})
		})

		Convey("When keys are scoped to voters", func() {
			d := dedupe.NewInMemoryDeduper()
			record(d, dedupe.Key("alice", "abc"))

			Convey("Then the same header from another voter is new", func() {
				So(record(d, dedupe.Key("bob", "abc")), ShouldBeFalse)
				So(record(d, dedupe.Key("alice", "abc")), ShouldBeTrue)
			})
		})
	})
}

func TestFingerprint(t *testing.T) {
	Convey("Given ballot fingerprints", t, func() {
		base := dedupe.Fingerprint("w1", []string{"a", "b"})

		Convey("Then identical ballots match", func() {
			So(dedupe.Fingerprint("w1", []string{"a", "b"}), ShouldEqual, base)
		})

		Convey("Then the week, the order and the id boundaries all count", func() {
			So(dedupe.Fingerprint("w2", []string{"a", "b"}), ShouldNotEqual, base)
			So(dedupe.Fingerprint("w1", []string{"b", "a"}), ShouldNotEqual, base)
			So(dedupe.Fingerprint("w1", []string{"ab"}), ShouldNotEqual, base)
			So(dedupe.Fingerprint("w1", nil), ShouldNotEqual, base)
		})
	})
}

func TestInMemoryDeduperConcurrency(t *testing.T) {
	Convey("Given concurrent submitters racing on the same keys", t, func() {
		d := dedupe.NewInMemoryDeduper()
		var (
			wg    sync.WaitGroup
			mu    sync.Mutex
			fresh int
		)
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 100; i++ {
					seen, err := d.SeenAndRecord(context.Background(), fmt.Sprintf("k%d", i), fp)
					if err == nil && !seen {
						mu.Lock()
						fresh++
						mu.Unlock()
					}
				}
			}()
		}
		wg.Wait()

		Convey("Then each key is new exactly once", func() {
			So(fresh, ShouldEqual, 100)
			So(d.Size(), ShouldEqual, 100)
		})
	})
}
