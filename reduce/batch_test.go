package reduce

import (
	"errors"
	"math"
	"testing"

	"go.viam.com/test"
)

func TestPartitionCoversRange(t *testing.T) {
	for _, n := range []int{0, 1, 2, 7, 1023, 1024, 1025, 2050, 4096, 10001} {
		for _, size := range []int{1, 3, 64, 1000, 1024, 5000} {
			batches, err := Partition(n, size)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, len(batches), test.ShouldEqual, BatchCount(n, size))

			next := 0
			total := 0
			for i, b := range batches {
				test.That(t, b.Index, test.ShouldEqual, i)
				test.That(t, b.Start, test.ShouldEqual, next)
				test.That(t, b.Len(), test.ShouldBeGreaterThan, 0)
				test.That(t, b.Len(), test.ShouldBeLessThanOrEqualTo, size)
				next = b.End
				total += b.Len()
			}
			test.That(t, total, test.ShouldEqual, n)
			test.That(t, next, test.ShouldEqual, n)
		}
	}
}

func TestPartitionEmpty(t *testing.T) {
	batches, err := Partition(0, 1024)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, batches, test.ShouldBeEmpty)
	test.That(t, BatchCount(0, 1024), test.ShouldEqual, 0)
}

func TestPartitionShortLastBatch(t *testing.T) {
	batches, err := Partition(2050, 1024)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, batches, test.ShouldResemble, []Batch{
		{Index: 0, Start: 0, End: 1024},
		{Index: 1, Start: 1024, End: 2048},
		{Index: 2, Start: 2048, End: 2050},
	})
}

func TestPartitionExactMultiple(t *testing.T) {
	batches, err := Partition(4096, 1024)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(batches), test.ShouldEqual, 4)
	for _, b := range batches {
		test.That(t, b.Len(), test.ShouldEqual, 1024)
	}
}

func TestPartitionInvalid(t *testing.T) {
	for _, size := range []int{0, -1, -1024} {
		_, err := Partition(100, size)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, errors.Is(err, ErrInvalidArgument), test.ShouldBeTrue)
	}

	_, err := Partition(-5, 10)
	test.That(t, errors.Is(err, ErrInvalidArgument), test.ShouldBeTrue)
}

func TestBatchCountNearMaxInt(t *testing.T) {
	test.That(t, BatchCount(math.MaxInt-1, 1024), test.ShouldEqual, math.MaxInt/1024+1)
	test.That(t, BatchCount(math.MaxInt, 1), test.ShouldEqual, math.MaxInt)
	test.That(t, BatchCount(math.MaxInt, math.MaxInt), test.ShouldEqual, 1)
	test.That(t, BatchCount(1, math.MaxInt), test.ShouldEqual, 1)

	half := math.MaxInt/2 + 1
	batches, err := Partition(math.MaxInt, half)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, batches, test.ShouldResemble, []Batch{
		{Index: 0, Start: 0, End: half},
		{Index: 1, Start: half, End: math.MaxInt},
	})
}
