// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const component = "bootloader"

// SetOutput configures logging output for standard loggers.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
	logrus.SetOutput(w)
}

// SetLogLevel sets the level for internal logging and installs the
// internal formatter. Needs to be called before the archive is opened.
func SetLogLevel(logLevel string) error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q, valid levels are %v: %w", logLevel, logrus.AllLevels, err)
	}

	logrus.SetLevel(level)
	logrus.SetFormatter(&InternalFormatter{})
	return nil
}

// InternalFormatter renders one line per entry:
// <time> [LEVEL] (bootloader) message key=value ...
type InternalFormatter struct{}

func (f *InternalFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	b := entry.Buffer
	if b == nil {
		b = &bytes.Buffer{}
	}

	b.WriteString(entry.Time.UTC().Format(time.RFC3339))
	fmt.Fprintf(b, " [%s] (%s) %s", strings.ToUpper(entry.Level.String()), component, entry.Message)

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Fprintf(b, " %s=%v", k, entry.Data[k])
	}

	b.WriteByte('\n')
	return b.Bytes(), nil
}
