// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ratecache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestQuota_MonthRollover(t *testing.T) {
	now := time.Date(2026, 3, 31, 23, 0, 0, 0, time.UTC)
	q := NewQuota(2, func() time.Time { return now })

	_, march, ok := q.TryReserve()
	assert.True(t, ok)
	_, _, ok = q.TryReserve()
	assert.True(t, ok)
	_, _, ok = q.TryReserve()
	assert.False(t, ok)
	assert.Equal(t, 0, q.Remaining())
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), q.ResetDate())

	now = now.Add(2 * time.Hour)
	q.Release(march)
	assert.Equal(t, 0, q.Used())
	assert.Equal(t, 2, q.Remaining())
}

func TestQuota_Unlimited(t *testing.T) {
	q := NewQuota(0, nil)
	for i := 0; i < 10; i++ {
		_, _, ok := q.TryReserve()
		assert.True(t, ok)
	}
	assert.Equal(t, -1, q.Remaining())
	assert.Equal(t, 0, q.Used())
}
