package e2e_test

import (
	"encoding/json"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/flexmod/flexmod/citest/testutil"
	"github.com/flexmod/flexmod/pkg/types"
)

var _ = Describe("Apply Workflows", func() {
	var fixture *testutil.ModFixture

	BeforeEach(func() {
		fixture = newLampMod()
	})

	It("should list the mod as enabled", func() {
		mods, err := client.ListMods(ctx)
		Expect(err).NotTo(HaveOccurred())

		var found *types.ModInfo
		for i := range mods {
			if mods[i].Name == fixture.Name {
				found = &mods[i]
			}
		}
		Expect(found).NotTo(BeNil())
		Expect(found.Enabled).To(BeTrue())
	})

	It("should create settings from the block defaults", func() {
		ps, err := client.GetSettings(ctx, fixture.Name)
		Expect(err).NotTo(HaveOccurred())
		Expect(types.Keys(ps.FinalSettings)).To(Equal([]string{"Light", "Hp"}))

		hp, _ := ps.FinalSettings.Get("Hp")
		Expect(hp).To(Equal(float64(100)))
	})

	It("should patch the target file with the selected values", func() {
		_, err := client.PatchSettings(ctx, fixture.Name, map[string]any{"Light": false, "Hp": 42})
		Expect(err).NotTo(HaveOccurred())

		report, err := client.Apply(ctx, fixture.Name, false)
		Expect(err).NotTo(HaveOccurred())
		applied, _, skipped := report.Counts()
		Expect(applied).To(Equal(2))
		Expect(skipped).To(BeZero())

		content, err := fixture.ReadConfigFile("lamp.xml")
		Expect(err).NotTo(HaveOccurred())
		Expect(content).To(Equal("<lamp hp=\"42\">\n<!-- FlexMod__Light__Start -->\n<off/>\n<!-- FlexMod__Light__End -->\n</lamp>\n"))

		By("applying again without changes")
		report, err = client.Apply(ctx, fixture.Name, false)
		Expect(err).NotTo(HaveOccurred())
		applied, unchanged, _ := report.Counts()
		Expect(applied).To(BeZero())
		Expect(unchanged).To(Equal(2))
	})

	It("should switch the marker block when the value changes", func() {
		_, err := client.Apply(ctx, fixture.Name, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(fixture.ReadConfigFile("lamp.xml")).To(ContainSubstring("<on/>"))

		_, err = client.PatchSettings(ctx, fixture.Name, map[string]any{"Light": "false"})
		Expect(err).NotTo(HaveOccurred())
		_, err = client.Apply(ctx, fixture.Name, false)
		Expect(err).NotTo(HaveOccurred())

		content, err := fixture.ReadConfigFile("lamp.xml")
		Expect(err).NotTo(HaveOccurred())
		Expect(content).To(ContainSubstring("<off/>"))
		Expect(content).NotTo(ContainSubstring("<on/>"))
	})

	It("should report diffs without writing on a dry run", func() {
		report, err := client.Apply(ctx, fixture.Name, true)
		Expect(err).NotTo(HaveOccurred())
		Expect(report.DryRun).To(BeTrue())
		Expect(report.Diffs).To(HaveLen(1))
		Expect(report.Diffs[0].Path).To(Equal("Config/lamp.xml"))
		Expect(report.Diffs[0].Diff).To(ContainSubstring("FlexMod__Light__Start"))

		Expect(fixture.ReadConfigFile("lamp.xml")).To(Equal(testutil.LampFile))
	})

	It("should reject a patch holding one invalid value", func() {
		resp, err := client.Patch(ctx, "/mods/"+fixture.Name+"/settings", map[string]any{"Light": false, "Hp": 9000})
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

		ps, err := client.GetSettings(ctx, fixture.Name)
		Expect(err).NotTo(HaveOccurred())
		light, _ := ps.FinalSettings.Get("Light")
		Expect(light).To(Equal(true))
	})

	It("should return 404 for an unknown mod", func() {
		resp, err := client.Get(ctx, "/mods/NoSuchMod/settings")
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusNotFound))

		var apiErr testutil.APIError
		Expect(resp.JSON(&apiErr)).To(Succeed())
		Expect(apiErr.Error.Code).To(Equal("NOT_FOUND"))
	})
})

var _ = Describe("Drift Checks", func() {
	var fixture *testutil.ModFixture

	BeforeEach(func() {
		fixture = newLampMod()
	})

	It("should report markers missing before the first apply", func() {
		report, err := client.Check(ctx, fixture.Name)
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Missing).To(HaveKeyWithValue("lamp.xml", []string{"Light"}))
		Expect(report.Clean()).To(BeFalse())
	})

	It("should find orphaned markers and suggest the rename", func() {
		_, err := client.Apply(ctx, fixture.Name, false)
		Expect(err).NotTo(HaveOccurred())

		Expect(fixture.WriteConfigFile("old.xml",
			"<x>\n<!-- FlexMod__Lights__Start -->\n<!-- FlexMod__Lights__End -->\n</x>\n")).To(Succeed())

		report, err := client.Check(ctx, fixture.Name)
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Missing).To(BeEmpty())
		Expect(report.Extra).To(HaveKeyWithValue("old.xml", []string{"Lights"}))
		Expect(report.Renames).To(HaveKeyWithValue("Lights", "Light"))
	})

	It("should report exec units naming files that do not exist", func() {
		doc := testutil.LampDocument()
		doc.Configs[0].Options[1].ExecUnits[0].FilePath = "ghost.xml"
		resp, err := client.Put(ctx, "/mods/"+fixture.Name+"/document", doc)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.IsSuccess()).To(BeTrue(), resp.String())

		resp, err = client.Get(ctx, "/mods/"+fixture.Name+"/check/nonexistent")
		Expect(err).NotTo(HaveOccurred())
		var nonexistent map[string]json.RawMessage
		Expect(resp.JSON(&nonexistent)).To(Succeed())
		Expect(nonexistent).To(HaveKey("ghost.xml"))
	})
})
