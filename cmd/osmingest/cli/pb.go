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

package cli

import (
	"fmt"
	"io"
	"os"

	pb "gopkg.in/cheggaaa/pb.v1"
)

// WrapFileProgress returns a ProgressBar tracking bytes read from f,
// relative to its total size, or nil if f is stdin.
func WrapFileProgress(f *os.File) (*pb.ProgressBar, error) {
	if f == os.Stdin {
		return nil, nil
	}

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}

	bar := pb.New(int(fi.Size())).SetUnits(pb.U_BYTES_DEC).SetWidth(79)
	bar.Output = os.Stderr
	bar.Start()

	return bar, nil
}

// FinishBar clears bar's line without printing a trailing newline; a no-op
// if bar is nil (stdin input, or progress disabled).
func FinishBar(bar *pb.ProgressBar) {
	if bar == nil {
		return
	}

	bar.NotPrint = true
	bar.Finish()

	fmt.Fprint(os.Stderr, "\033[2K\r")
}

// SeekerProgress wraps an io.ReadSeeker, advancing bar by every byte Read
// returns. Seek passes straight through and leaves bar untouched, so the
// blob bodies scan's header pass seeks forward over are not counted.
type SeekerProgress struct {
	io.ReadSeeker
	Bar *pb.ProgressBar
}

func (s SeekerProgress) Read(p []byte) (int, error) {
	n, err := s.ReadSeeker.Read(p)
	if s.Bar != nil {
		s.Bar.Add(n)
	}

	return n, err
}
