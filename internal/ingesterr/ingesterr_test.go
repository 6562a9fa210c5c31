// Copyright 2017-25 the original author or authors.
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

package ingesterr_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/maguro/osmingest/internal/ingesterr"
)

func TestRaiseCapturesStack(t *testing.T) {
	err := ingesterr.Raise(ingesterr.NonIDKey, 0x7f)
	assert.Contains(t, err.Error(), "0x7f")
	assert.NotEmpty(t, err.Stack())
}

func TestWrapUnwraps(t *testing.T) {
	cause := errors.New("boom")
	err := ingesterr.Wrap(ingesterr.NonIDKey, cause)
	assert.ErrorIs(t, err, cause)
}
