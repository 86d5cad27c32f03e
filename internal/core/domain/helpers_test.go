package domain_test

import "time"

var fixedTime = time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC)
