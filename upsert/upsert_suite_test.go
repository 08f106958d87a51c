package upsert_test

import (
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func TestUpsert(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Upsert Suite")
}
